package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself.
// output example:
//  {"NumGoroutines":11,"HeapAllocatedBytes":332256360,"HeapAllocated":"332 MB",
//   "SysMemoryBytes":360290312,"SysMemory":"360 MB","Session":"idle","ArchivedMessages":12,
//   "MQTTConnected":true,"Version":"1.0.10+20261001","ProgLang":"go1.22.5"}
func (app *App) HandleHealth() fiber.Handler {
	host, _ := os.Hostname()
	started := time.Now()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		archived := -1
		if app.archive != nil {
			if n, err := app.archive.Count(); err == nil {
				archived = n
			}
		}

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocated      string
			SysMemoryBytes     uint64
			SysMemory          string
			Session            string
			ArchivedMessages   int
			MQTTConnected      bool
			Version            string
			ProgLang           string
			HostName           string
			Started            string
			Time               string
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: m.Alloc,
			HeapAllocated:      humanize.Bytes(m.Alloc),
			SysMemoryBytes:     m.Sys,
			SysMemory:          humanize.Bytes(m.Sys),
			Session:            app.session.State().String(),
			ArchivedMessages:   archived,
			MQTTConnected:      app.mqtt.Connected(),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Started:            humanize.Time(started),
			Time:               time.Now().Format(time.RFC3339),
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
