package main

import (
	"flag"
	"os"

	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"
)

var archivePath = flag.String("archive", "", "kar archive to browse")

func main() {
	flag.Parse()
	gtk.Init(nil)

	app, err := buildInterface(*archivePath)
	if err != nil {
		log.WithError(err).Error("interface build failed")
		os.Exit(1)
	}
	os.Exit(app.Run(nil))
}
