package main

import (
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tigerbot-team/notechaser/pkg/picobldc"
)

func main() {
	device := flag.String("device", "/dev/i2c-1", "I2C bus of the motor board")
	rps := flag.Float64("rps", 1, "wheel speed to run all motors at")
	flag.Parse()

	fmt.Println("Pico-BLDC test program")
	pico, err := picobldc.New(*device)
	if err != nil {
		panic(err)
	}
	defer pico.Close()
	fmt.Println("Created PicoBLDC object. Enabling watchdog...")

	if err := pico.SetWatchdog(time.Second); err != nil {
		panic(err)
	}
	fmt.Println("Watchdog enabled.")

	speed := picobldc.RPSToMotorSpeed(*rps)
	for {
		if err := pico.SetMotorSpeeds(speed, speed, speed, speed); err != nil {
			fmt.Println("Failed to set speeds:", err)
		}
		readings, err := pico.Read()
		if err != nil {
			fmt.Println("Failed to read board:", err)
		}
		fmt.Printf("%v speed=%d\n", readings, speed)
		time.Sleep(500 * time.Millisecond)
	}
}
