package main

import (
	_ "git.automatex.dev/stem/stemweb/src/apitools"
	_ "git.automatex.dev/stem/stemweb/src/locals3"
	"git.automatex.dev/stem/stemweb/src/website"
)

func main() {
	website.WebsiteCommand.Execute()
}
