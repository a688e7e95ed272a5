package main

import (
	"errors"
	"fmt"

	"github.com/devblok/ffp/utility/kar"
	"github.com/gobuffalo/packr"
	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"
	log "github.com/sirupsen/logrus"
)

// StaticResources holds the interface definition.
var StaticResources = packr.NewBox("./resources")

// Columns of the entry list
const (
	columnName = iota
	columnSize
	columnCompressed
	columnRatio
)

func buildInterface(path string) (*gtk.Application, error) {
	app, err := gtk.ApplicationNew("org.devblok.ffped", glib.APPLICATION_FLAGS_NONE)
	if err != nil {
		return nil, err
	}

	app.Connect("startup", func() {
		log.Info("Application starting")
	})

	app.Connect("activate", func() {
		log.Info("Application activating")

		win, err := buildWindow(path)
		if err != nil {
			log.WithError(err).Error("window build failed")
			app.Quit()
			return
		}
		win.SetDefaultSize(600, 480)
		win.ShowAll()
		app.AddWindow(win)
	})

	app.Connect("shutdown", func() {
		log.Info("Application shutting down")
	})
	return app, nil
}

func buildWindow(path string) (*gtk.Window, error) {
	resource, err := StaticResources.FindString("ffped.glade")
	if err != nil {
		return nil, err
	}

	builder, err := gtk.BuilderNew()
	if err != nil {
		return nil, err
	}
	if err := builder.AddFromString(resource); err != nil {
		return nil, err
	}

	obj, err := builder.GetObject("mainWindow")
	if err != nil {
		return nil, err
	}
	win, ok := obj.(*gtk.Window)
	if !ok {
		return nil, errors.New("failed to cast Object from builder to Window")
	}

	if path == "" {
		return win, nil
	}

	header, err := builderLabel(builder, "header")
	if err != nil {
		return nil, err
	}
	view, err := builderTreeView(builder, "entries")
	if err != nil {
		return nil, err
	}

	archive, err := kar.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer archive.Close()

	summary, rows, err := describe(archive)
	if err != nil {
		return nil, err
	}
	header.SetText(summary)
	win.SetTitle("ffped - " + path)

	if err := fillEntries(view, rows); err != nil {
		return nil, err
	}
	return win, nil
}

func builderLabel(builder *gtk.Builder, id string) (*gtk.Label, error) {
	obj, err := builder.GetObject(id)
	if err != nil {
		return nil, err
	}
	label, ok := obj.(*gtk.Label)
	if !ok {
		return nil, fmt.Errorf("object %s is not a Label", id)
	}
	return label, nil
}

func builderTreeView(builder *gtk.Builder, id string) (*gtk.TreeView, error) {
	obj, err := builder.GetObject(id)
	if err != nil {
		return nil, err
	}
	view, ok := obj.(*gtk.TreeView)
	if !ok {
		return nil, fmt.Errorf("object %s is not a TreeView", id)
	}
	return view, nil
}

func fillEntries(view *gtk.TreeView, rows []row) error {
	store, err := gtk.ListStoreNew(glib.TYPE_STRING, glib.TYPE_INT64, glib.TYPE_INT64, glib.TYPE_STRING)
	if err != nil {
		return err
	}

	for idx, title := range []string{"Name", "Size", "Compressed", "Ratio"} {
		renderer, err := gtk.CellRendererTextNew()
		if err != nil {
			return err
		}
		column, err := gtk.TreeViewColumnNewWithAttribute(title, renderer, "text", idx)
		if err != nil {
			return err
		}
		view.AppendColumn(column)
	}

	for _, r := range rows {
		iter := store.Append()
		if err := store.Set(iter,
			[]int{columnName, columnSize, columnCompressed, columnRatio},
			[]interface{}{r.Name, r.Size, r.Compressed, r.Ratio},
		); err != nil {
			return err
		}
	}
	view.SetModel(store)
	return nil
}
