// Package browser abstracts the automation driver behind small Driver and
// Session interfaces.
//
// The production implementation drives headless Chrome over the DevTools
// protocol via chromedp. Session cookie state is serialized to JSON so the
// sessions package can persist it and a later Launch can restore it, skipping
// interactive login. Tests inject a scripted fake honoring the same
// interfaces; nothing above this package knows which driver is in play.
package browser
