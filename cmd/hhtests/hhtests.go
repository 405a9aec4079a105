package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tigerbot-team/notechaser/pkg/config"
	"github.com/tigerbot-team/notechaser/pkg/hardware"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file")
	dummy := flag.Bool("dummy", false, "simulate the hardware")
	flag.Parse()

	fmt.Println("---- HH tests ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialise the hardware.
	var hw hardware.Interface
	if *dummy {
		hw = hardware.NewSim(cfg, 0)
	} else {
		hw, err = hardware.New(cfg, 0)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()
	if err := hw.Start(ctx); err != nil {
		fmt.Println(err)
		return
	}

	hh := hw.Drive()
	fmt.Println(
		`Commands:
    t <speed> <heading> <duration>
    h <heading>
    p`)

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		line = strings.TrimSpace(line)
		parts := strings.Split(line, " ")
		switch parts[0] {
		case "t":
			if len(parts) < 4 {
				fmt.Println("Not enough parameters")
				continue
			}

			speed, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Printf("Failed to parse float: %v\n", err)
				continue
			}
			heading, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				fmt.Printf("Failed to parse float: %v\n", err)
				continue
			}
			d, err := time.ParseDuration(parts[3])
			if err != nil {
				fmt.Printf("Failed to parse duration: %v\n", err)
				continue
			}
			hh.DriveAndHoldHeading(speed, 0, heading)
			time.Sleep(d)
			hh.SetHoldHeading(heading)
		case "h":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}

			heading, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Printf("Failed to parse float: %v\n", err)
				continue
			}
			fmt.Printf("Setting heading: %.1f\n", heading)
			hh.ResetRotationController()
			hh.SetHoldHeading(heading)
		case "p":
			x, y := hw.Pose().Pose()
			fmt.Printf("Heading %.1f (target %.1f) at (%.2f, %.2f)\n",
				hh.HeadingDegrees(), hh.TargetHeading(), x, y)
		}
	}
}
