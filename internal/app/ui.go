package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"yashubustudio/recommender/recommender"
)

type uiState struct {
	service  *recommender.Service
	settings *settingsStore
	logger   zerolog.Logger

	w          fyne.Window
	rows       []recommender.EditorRow
	qtyEntries []*widget.Entry
	editor     *fyne.Container
	recs       []recommender.Recommendation
	recTbl     *widget.Table
	summary    *widget.RichText
	topK       *widget.Slider
	topKLabel  *widget.Label
	statusBind binding.String

	suggestBtn *widget.Button
	clearBtn   *widget.Button
	loadBtn    *widget.Button
	exportBtn  *widget.Button
}

func buildUI(win fyne.Window, svc *recommender.Service, settings *settingsStore, logBind binding.String, logger zerolog.Logger) *uiState {
	u := &uiState{service: svc, settings: settings, logger: logger, w: win}
	u.rows = svc.EditorRows()

	u.statusBind = binding.NewString()
	_ = u.statusBind.Set("Pronto")

	u.editor = container.NewGridWithColumns(4)
	u.rebuildEditor()

	u.topKLabel = widget.NewLabel("")
	u.topK = widget.NewSlider(recommender.MinTopK, recommender.MaxTopK)
	u.topK.Step = 1
	u.topK.OnChanged = func(v float64) {
		u.topKLabel.SetText(fmt.Sprintf("Top-K: %d", int(v)))
	}
	u.topK.SetValue(float64(svc.DefaultTopK()))
	u.topKLabel.SetText(fmt.Sprintf("Top-K: %d", svc.DefaultTopK()))
	u.topK.OnChangeEnded = func(v float64) {
		if err := u.settings.SaveTopK(int(v)); err != nil {
			u.logger.Warn().Err(err).Msg("could not save top-k")
		}
	}

	u.suggestBtn = widget.NewButtonWithIcon("Sugerir", theme.ConfirmIcon(), func() { u.onSuggest() })
	u.clearBtn = widget.NewButtonWithIcon("Limpar quantidades", theme.ContentClearIcon(), func() { u.onClear() })
	u.loadBtn = widget.NewButtonWithIcon("Carregar carrinho", theme.FolderOpenIcon(), func() { u.onLoadCart() })
	u.exportBtn = widget.NewButtonWithIcon("Exportar CSV", theme.DocumentSaveIcon(), func() { u.onExport() })

	u.recTbl = widget.NewTable(
		func() (int, int) { return len(u.recs) + 1, 2 },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			lbl := obj.(*widget.Label)
			if id.Row == 0 {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				lbl.SetText([]string{"Produto recomendado", "Score"}[id.Col])
				return
			}
			lbl.TextStyle = fyne.TextStyle{}
			rec := u.recs[id.Row-1]
			if id.Col == 0 {
				lbl.SetText(rec.Name)
				return
			}
			lbl.SetText(strconv.FormatFloat(rec.Score, 'f', 4, 64))
		},
	)
	u.recTbl.SetColumnWidth(0, 280)
	u.recTbl.SetColumnWidth(1, 100)

	u.summary = widget.NewRichTextFromMarkdown(recommender.Summary{}.Markdown())

	logView := widget.NewEntryWithData(logBind)
	logView.MultiLine = true
	logView.Wrapping = fyne.TextWrapWord
	logView.Disable()

	header := container.NewGridWithColumns(4,
		boldLabel("Produto"), boldLabel("Categoria"), boldLabel("Preço"), boldLabel("Quantidade"))
	left := container.NewBorder(
		container.NewVBox(boldLabel("Carrinho"), header),
		container.NewVBox(
			container.NewGridWithColumns(2, u.topKLabel, u.topK),
			container.NewGridWithColumns(2, u.suggestBtn, u.clearBtn),
			container.NewGridWithColumns(2, u.loadBtn, u.exportBtn),
			widget.NewLabelWithData(u.statusBind),
		),
		nil, nil,
		container.NewVScroll(u.editor),
	)
	results := container.NewBorder(
		container.NewVBox(boldLabel("Recomendações"), u.summary, widget.NewSeparator()),
		nil, nil, nil,
		u.recTbl,
	)
	logs := container.NewBorder(boldLabel("Log"), nil, nil, nil, logView)
	right := container.NewVSplit(results, logs)
	right.Offset = 0.65

	split := container.NewHSplit(left, right)
	split.Offset = 0.55
	u.w.SetContent(split)
	return u
}

func boldLabel(text string) *widget.Label {
	return widget.NewLabelWithStyle(text, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
}

// rebuildEditor recreates the editor grid from u.rows. Only quantities are editable.
func (u *uiState) rebuildEditor() {
	u.editor.RemoveAll()
	u.qtyEntries = make([]*widget.Entry, len(u.rows))
	for i, row := range u.rows {
		price := ""
		if p, ok := row.Price.(float64); ok {
			price = recommender.FormatBRL(p)
		} else if row.Price != nil {
			price = fmt.Sprint(row.Price)
		}
		qty := widget.NewEntry()
		qty.SetText(fmt.Sprint(row.Quantity))
		u.qtyEntries[i] = qty
		u.editor.Add(widget.NewLabel(row.Name))
		u.editor.Add(widget.NewLabel(row.Category))
		u.editor.Add(widget.NewLabel(price))
		u.editor.Add(qty)
	}
	u.editor.Refresh()
}

// collectRows copies the quantity entries back into the editor rows. The text is kept
// as-is; NormalizeRows coerces it.
func (u *uiState) collectRows() []recommender.EditorRow {
	rows := make([]recommender.EditorRow, len(u.rows))
	copy(rows, u.rows)
	for i, entry := range u.qtyEntries {
		rows[i].Quantity = entry.Text
	}
	return rows
}

func (u *uiState) setBusy(b bool) {
	fyne.Do(func() {
		for _, btn := range []*widget.Button{u.suggestBtn, u.clearBtn, u.loadBtn} {
			if b {
				btn.Disable()
			} else {
				btn.Enable()
			}
		}
	})
}

func (u *uiState) onSuggest() {
	rows := u.collectRows()
	topK := int(u.topK.Value)
	u.rows = rows
	u.setBusy(true)
	_ = u.statusBind.Set("Calculando...")
	start := time.Now()

	go func() {
		defer u.setBusy(false)
		res, err := u.service.Suggest(context.Background(), rows, topK)
		if err != nil {
			u.logger.Error().Err(err).Msg("suggest failed")
			_ = u.statusBind.Set("Erro")
			fyne.Do(func() { dialog.ShowError(err, u.w) })
			return
		}
		u.logger.Info().
			Int("items", res.Summary.ItemCount).
			Ints("sequence", res.Sequence).
			Int("recommendations", len(res.Recommendations)).
			Dur("elapsed", time.Since(start)).
			Msg("suggest done")
		fyne.Do(func() {
			u.recs = res.Recommendations
			u.recTbl.Refresh()
			u.summary.ParseMarkdown(res.Summary.Markdown())
		})
		_ = u.statusBind.Set(fmt.Sprintf("Concluído (%s)", time.Since(start).Round(time.Millisecond)))
	}()
}

func (u *uiState) onClear() {
	u.rows = u.service.Clear(u.collectRows())
	for _, entry := range u.qtyEntries {
		entry.SetText("0")
	}
	u.recs = nil
	u.recTbl.Refresh()
	u.summary.ParseMarkdown(recommender.Summary{}.Markdown())
	_ = u.statusBind.Set("Quantidades zeradas")
	u.logger.Info().Msg("cart cleared")
}

func (u *uiState) onLoadCart() {
	fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		picked, err := recommender.ParseCartFile(path, u.service.Catalog())
		if err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.rows = recommender.MergeQuantities(recommender.ClearRows(u.collectRows()), picked)
		u.rebuildEditor()
		u.logger.Info().Str("file", rc.URI().Name()).Int("lines", len(picked)).Msg("cart loaded")
	}, u.w)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".tsv"}))
	fd.Show()
}

func (u *uiState) onExport() {
	if len(u.recs) == 0 {
		dialog.ShowInformation("Informação", "Nenhuma recomendação para exportar", u.w)
		return
	}
	recs := append([]recommender.Recommendation(nil), u.recs...)
	fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
		if err != nil || uc == nil {
			return
		}
		defer uc.Close()
		if err := recommender.WriteRecommendationsCSV(uc, recs); err != nil {
			dialog.ShowError(err, u.w)
			return
		}
		u.logger.Info().Int("rows", len(recs)).Msg("recommendations exported")
	}, u.w)
	fd.SetFileName("recomendacoes.csv")
	fd.Show()
}
