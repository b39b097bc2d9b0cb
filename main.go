package main

import (
	"embed"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"

	"go.ospresenter.app/presenter/internal/app"
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

	wailsApp := application.New(application.Options{
		Name:        "OSPresenter",
		Description: "Presentation software with a synced audience display",
		Services: []application.Service{
			application.NewService(appService),
		},
		Assets: application.AssetOptions{
			Handler: application.BundledAssetFileServer(assets),
		},
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
		OnShutdown: appService.Shutdown,
	})

	// Presenter window
	wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Title:  "OSPresenter",
		Width:  1280,
		Height: 800,
		URL:    "/",
		Mac: application.MacWindow{
			TitleBar:                application.MacTitleBarHiddenInsetUnified,
			InvisibleTitleBarHeight: 38,
		},
		DevToolsEnabled: true,
	})

	// Audience window starts hidden; the presenter shows it on demand.
	audience := wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Name:   "audience",
		Title:  "OSPresenter Audience",
		Width:  1920,
		Height: 1080,
		URL:    "/audience",
		Hidden: true,
	})

	// Closing the audience window only hides it so the handshake can reuse it.
	audience.RegisterHook(events.Common.WindowClosing, func(e *application.WindowEvent) {
		e.Cancel()
		audience.Hide()
	})

	appService.Init(wailsApp, audience)

	tray := wailsApp.SystemTray.New()
	tray.SetLabel("OSP")

	trayMenu := wailsApp.NewMenu()
	trayMenu.Add("Show Audience Window").OnClick(func(*application.Context) {
		if err := appService.ShowAudienceWindow(); err != nil {
			slog.Error("show audience window", "error", err)
		}
	})
	trayMenu.Add("Hide Audience Window").OnClick(func(*application.Context) {
		if err := appService.HideAudienceWindow(); err != nil {
			slog.Error("hide audience window", "error", err)
		}
	})
	trayMenu.Add("Retry Video Sync").OnClick(func(*application.Context) {
		appService.RetryVideoHandshake()
	})
	trayMenu.AddSeparator()
	trayMenu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(*application.Context) {
			wailsApp.Quit()
		})
	tray.SetMenu(trayMenu)

	if err := wailsApp.Run(); err != nil {
		slog.Error("run app", "error", err)
	}
}
