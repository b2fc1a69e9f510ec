package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.aimuz.me/cliptrans/internal/app"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	slog.Info("starting app", "version", version, "commit", commit, "date", date)
	appService := app.New(version)

	wapp := application.New(application.Options{
		Name:        "ClipTrans",
		Description: "Streaming clipboard translator",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			// Keep running in the tray after the window closes
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})

	mainWindow := wapp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "ClipTrans",
		Width:  720,
		Height: 560,
		URL:    "/",
		Mac: application.MacWindow{
			TitleBar:                application.MacTitleBarHiddenInsetUnified,
			InvisibleTitleBarHeight: 38,
		},
	})

	// Hide instead of destroy so the tray and hotkey can reopen it
	mainWindow.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		mainWindow.Hide()
	})

	if err := appService.Init(wapp, mainWindow); err != nil {
		slog.Error("init app", "error", err)
	}

	systemTray := wapp.SystemTray.New()
	systemTray.SetLabel("ClipTrans")

	trayMenu := wapp.NewMenu()
	trayMenu.Add("Show Window").OnClick(func(ctx *application.Context) {
		appService.ShowWindow()
	})
	trayMenu.Add("Translate Clipboard").
		SetAccelerator("CmdOrCtrl+Shift+T").
		OnClick(func(ctx *application.Context) {
			go func() {
				appService.ShowWindow()
				if _, err := appService.TranslateClipboard(); err != nil {
					slog.Error("translate from tray", "error", err)
				}
			}()
		})
	trayMenu.Add("Cancel Translation").OnClick(func(ctx *application.Context) {
		if _, err := appService.Cancel(); err != nil {
			slog.Error("cancel from tray", "error", err)
		}
	})

	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(ctx *application.Context) {
			appService.Shutdown()
			wapp.Quit()
		})

	systemTray.SetMenu(trayMenu)

	if err := wapp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
	appService.Shutdown()
}
