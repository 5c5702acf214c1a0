// Command anamorph builds anamorphic text sculptures: one solid that reads
// as a different word from each of three viewpoints. It can also render
// the views of a mesh and strip components that no view depends on.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := NewApp(os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
