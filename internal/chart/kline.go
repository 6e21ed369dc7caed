// Package chart renders downloaded candle series as interactive HTML
// candlestick charts.
package chart

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"candleloader/internal/domain"
)

const (
	colorBull = "#34d399"
	colorBear = "#f87171"

	chartWidthPx   = 1500
	klineHeightPx  = 600
	volumeHeightPx = 240
)

// Render writes an HTML page with a candlestick chart and a volume pane
// for one symbol's bars. Bars must be in ascending timestamp order.
func Render(w io.Writer, symbol, intervalLabel string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("no bars to render for %s", symbol)
	}

	xAxis := buildXAxis(bars)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s %s", strings.ToUpper(symbol), intervalLabel)
	page.AddCharts(
		buildKline(symbol, intervalLabel, xAxis, bars),
		buildVolume(xAxis, bars),
	)
	return page.Render(w)
}

func buildKline(symbol, intervalLabel string, xAxis []string, bars []domain.Bar) *charts.Kline {
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", klineHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s %s", strings.ToUpper(symbol), intervalLabel),
			Left:  "left",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	data := make([]opts.KlineData, len(bars))
	for i, b := range bars {
		data[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
	}
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", data)
	return kline
}

func buildVolume(xAxis []string, bars []domain.Bar) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  types.ThemeWesteros,
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", volumeHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	vols := make([]opts.BarData, len(bars))
	for i, b := range bars {
		color := colorBear
		if b.Close >= b.Open {
			color = colorBull
		}
		vols[i] = opts.BarData{
			Value:     b.Volume,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)
	return bar
}

func buildXAxis(bars []domain.Bar) []string {
	x := make([]string, len(bars))
	for i, b := range bars {
		x[i] = time.UnixMilli(b.Ts).UTC().Format("2006-01-02 15:04")
	}
	return x
}
