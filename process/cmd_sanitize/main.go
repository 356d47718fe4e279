package main

import "labelcheck/process/sanitize"

func main() {
	sanitize.Run()
}
