// Package dispatch runs the upload state machine shared by every platform
// integration.
//
// One Dispatcher drives all platforms through the same ordered gates:
// config toggle, demo mode, credential presence, file presence, then the
// browser (or browserless) delivery flow. Each platform contributes only a
// descriptor of URLs, selectors, and credential keys. Every terminal state
// appends exactly one audit record; alerts fire only for the error state and
// never change the recorded outcome.
package dispatch
