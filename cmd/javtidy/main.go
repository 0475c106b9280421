// Command javtidy watches a directory of video files, scrapes Kodi
// sidecar metadata for each, and reorganizes the library under a
// configurable naming scheme (SPEC_FULL §4.13).
package main

func main() {
	Execute()
}
