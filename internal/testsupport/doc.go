// Package testsupport provides shared builders for tests: temp-dir configs
// and a scripted fake browser driver.
package testsupport
