// Command airlift is the CLI and daemon entry point for the media
// distribution pipeline.
package main
