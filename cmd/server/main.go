package main

import "github.com/anonto42/gatherly/backend/cmd/server/cmd"

func main() {
	cmd.Execute()
}
