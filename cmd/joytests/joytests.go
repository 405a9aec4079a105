package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/tigerbot-team/notechaser/pkg/joystick"
)

func main() {
	device := flag.String("device", joystick.DefaultDevice, "joystick device")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	j, err := joystick.WaitForJoystick(ctx, *device)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for je := range j.Events(ctx) {
		switch {
		case je.IsPress(joystick.ButtonR1):
			fmt.Println("R1: start approach")
		case je.IsPress(joystick.ButtonSquare):
			fmt.Println("Square: cancel")
		case je.IsPress(joystick.ButtonTriangle):
			fmt.Println("Triangle: toggle autonomous")
		case je.IsPress(joystick.ButtonCircle):
			fmt.Println("Circle: toggle alliance")
		}
	}
}
