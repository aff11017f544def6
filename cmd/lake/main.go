// lake provisions the AWS resources of the data lake.
//
// # Commands
//
//	lake bucket     Create the lake bucket and upload the local data tree
//	lake catalog    Create the Glue database and register the zone tables
//	lake results    Create the results bucket and point the Athena workgroup at it
//	lake teardown   Delete every object, version and delete marker, then the bucket
//	lake tables     Print the table plan without calling AWS
//	lake runs       Show the outcomes of a recorded run
//	lake version    Print the build version
//
// # Configuration
//
// Resource names come from lake.yaml, searched for from the current
// directory upwards; flags override it. Credentials are read from the INI
// file named by the project (dwh.cfg by default), section [AWS], keys KEY
// and SECRET.
//
// Run offline against a local emulator:
//
//	lake bucket --local ./.lake
//	lake catalog --local ./.lake
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
