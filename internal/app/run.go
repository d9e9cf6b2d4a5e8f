package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/joho/godotenv"

	"yashubustudio/recommender/internal/logging"
	"yashubustudio/recommender/recommender"
)

const fyneAppID = "yashubustudio.recommender"

// Run loads configuration and resources and starts the desktop UI. Resource failures
// are shown in the window instead of starting the editor.
func Run() error {
	_ = godotenv.Load()

	a := fyneapp.NewWithID(fyneAppID)
	win := a.NewWindow("Recomendador de carrinho")
	win.Resize(fyne.NewSize(1100, 720))

	logBind := binding.NewString()
	capture := newLogCapture(logBind, 300)

	cfgPath := os.Getenv("RECOMMENDER_CONFIG")
	fileCfg, err := recommender.ReadConfigFile(cfgPath)
	if err != nil {
		showFatalError(win, fmt.Errorf("falha ao ler a configuração: %w", err))
		return err
	}
	cfg := fileCfg.Clone()
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	logger := logging.New(logging.Config{
		Level:   cfg.Log.Level,
		Format:  "console",
		NoColor: true,
		Output:  io.MultiWriter(os.Stderr, capture),
	})

	res, err := recommender.LoadResources(context.Background(), cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		showFatalError(win, fmt.Errorf("falha ao carregar os artefatos: %w", err))
		return err
	}
	svc, err := recommender.NewService(res, logger)
	if err != nil {
		_ = res.Scorer.Close()
		showFatalError(win, err)
		return err
	}
	defer svc.Close()

	u := buildUI(win, svc, newSettingsStore(cfgPath, fileCfg), logBind, logger)
	u.w.ShowAndRun()
	return nil
}

func showFatalError(win fyne.Window, err error) {
	win.SetContent(widget.NewLabel(err.Error()))
	dialog.ShowError(err, win)
	win.ShowAndRun()
}
