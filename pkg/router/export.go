package router

import (
	"strings"

	"github.com/newtron-network/newtsim/pkg/model"
)

// ExportRunningConfig renders the running configuration of every device,
// each under a two-line header "# Device <hostname> (<model>)" and
// "vendor <vendor>", separated by blank lines. A device without a model
// names its vendor in the first line. The text ends with exactly one newline; an empty topology exports "".
func (r *Router) ExportRunningConfig() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ExportDevices(r.topo.Devices)
}

// ExportDevices is the export format over an arbitrary device list.
func ExportDevices(devices []*model.Device) string {
	sections := make([]string, 0, len(devices))
	for _, d := range devices {
		lines := append(exportHeader(d), model.RunningConfig(d)...)
		sections = append(sections, strings.Join(lines, "\n"))
	}
	text := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if text == "" {
		return ""
	}
	return text + "\n"
}

func exportHeader(d *model.Device) []string {
	platform := d.Model
	if platform == "" {
		platform = d.Vendor
	}
	return []string{"# Device " + d.Hostname + " (" + platform + ")", "vendor " + d.Vendor}
}
