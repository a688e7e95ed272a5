package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/devblok/ffp/device"
	log "github.com/sirupsen/logrus"
)

var pretty = flag.Bool("pretty", false, "Indent the JSON output")

func main() {
	flag.Parse()

	devices, err := device.NewBackend(nil, nil).PhysicalDevices()
	if err != nil {
		log.WithError(err).Error("physical device query failed")
		os.Exit(1)
	}

	var bytes []byte
	if *pretty {
		bytes, err = json.MarshalIndent(devices, "", "  ")
	} else {
		bytes, err = json.Marshal(devices)
	}
	if err != nil {
		log.WithError(err).Error("encoding failed")
		os.Exit(1)
	}
	fmt.Printf("%s\n", bytes)
}
