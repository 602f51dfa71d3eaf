package server

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/internal/dashboard"
)

// RevisionHeader carries the canvas revision of a rendered frame.
const RevisionHeader = "X-Chartz-Revision"

type handlers struct {
	dash    *dashboard.Dashboard
	started time.Time
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *handlers) listCharts(c *gin.Context) {
	charts := h.dash.Charts()
	out := make([]dashboard.Status, len(charts))
	for i, ch := range charts {
		out[i] = ch.Status()
	}
	c.JSON(http.StatusOK, gin.H{"charts": out})
}

// chart resolves the :name parameter, writing a 404 when it is unknown.
func (h *handlers) chart(c *gin.Context) (*dashboard.Chart, bool) {
	ch, ok := h.dash.Chart(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chart not found"})
	}
	return ch, ok
}

func (h *handlers) getChart(c *gin.Context) {
	ch, ok := h.chart(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ch.Status())
}

func (h *handlers) renderChart(c *gin.Context) {
	ch, ok := h.chart(c)
	if !ok {
		return
	}
	frame, ok := ch.Canvas.Content()
	if !ok {
		st := ch.Status()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "chart not rendered",
			"loading": st.Loading,
			"cause":   st.Error,
		})
		return
	}
	c.Header(RevisionHeader, strconv.FormatUint(frame.Revision, 10))
	c.Data(http.StatusOK, frame.ContentType, frame.Body)
}

func (h *handlers) refreshChart(c *gin.Context) {
	ch, ok := h.chart(c)
	if !ok {
		return
	}
	pr := ch.Pipeline.Presentation()
	if pr.Refresh == nil || ch.Def.Endpoint == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "chart has no endpoint"})
		return
	}
	pr.Refresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refreshing"})
}

type intervalRequest struct {
	Interval string `json:"interval" binding:"required"`
}

func (h *handlers) setInterval(c *gin.Context) {
	ch, ok := h.chart(c)
	if !ok {
		return
	}
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := time.ParseDuration(req.Interval)
	if err != nil || d < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be a non-negative duration"})
		return
	}
	ch.SetInterval(d)
	c.JSON(http.StatusOK, ch.Status())
}

type themeRequest struct {
	Theme string `json:"theme" binding:"required"`
}

func (h *handlers) getTheme(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"theme": h.dash.Themes().Theme()})
}

func (h *handlers) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	theme, err := chartz.ParseTheme(req.Theme)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dash.Themes().Set(c.Request.Context(), theme)
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

func (h *handlers) toggleTheme(c *gin.Context) {
	theme := h.dash.Themes().Toggle(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"theme": theme})
}

const mib = 1 << 20

// systemInfo reports the process memory breakdown as chart data.
func (h *handlers) systemInfo(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	other := m.Sys - m.HeapInuse - m.HeapIdle - m.StackInuse
	if m.Sys < m.HeapInuse+m.HeapIdle+m.StackInuse {
		other = 0
	}
	c.JSON(http.StatusOK, chartz.ChartData{
		Labels: []string{"Heap In Use", "Heap Idle", "Stack", "Other"},
		Datasets: []chartz.Dataset{{
			Label: "Memory (MiB)",
			Data: []float64{
				toMiB(m.HeapInuse),
				toMiB(m.HeapIdle),
				toMiB(m.StackInuse),
				toMiB(other),
			},
		}},
	})
}

func toMiB(b uint64) float64 {
	return float64(b*100/mib) / 100
}
