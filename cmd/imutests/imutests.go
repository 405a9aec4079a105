package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tigerbot-team/notechaser/pkg/bno08x"
)

func main() {
	device := flag.String("device", bno08x.DefaultSerialDevice, "UART of the IMU")
	flag.Parse()

	ctx := context.Background()
	imu := bno08x.New(*device)
	go imu.LoopReadingReports(ctx)

	first, err := imu.WaitForReportAfter(ctx, time.Now())
	if err != nil {
		panic(err)
	}
	offset := first.RobotYaw()
	for {
		rep := imu.CurrentReport()
		fmt.Printf("%v\n", rep)
		fmt.Printf("Yaw since start: %.2f\n", rep.RobotYaw().Sub(offset).Float())
		time.Sleep(200 * time.Millisecond)
	}
}
