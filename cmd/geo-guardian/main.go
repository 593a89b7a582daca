package main

import "github.com/oshokin/geo-guardian/cmd/geo-guardian/cmd"

func main() {
	cmd.Execute()
}
