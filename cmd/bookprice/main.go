package main

import (
	"bookprice-pipeline/cmd/bookprice/commands"
	"bookprice-pipeline/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
