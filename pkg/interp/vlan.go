package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newtron-network/newtsim/pkg/cli"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/util"
)

func createVLAN(c *call) {
	id, _ := strconv.Atoi(c.cmd.Arg(0))
	if util.ValidateVLANID(id) != nil {
		c.fail("Error: Invalid VLAN ID. Must be 1-4094.")
		return
	}
	c.d.AddVLANs(id)
	c.print("VLAN %d created", id)
}

func vlanBatch(c *call) {
	ids, err := util.ParseVLANList(strings.Fields(c.cmd.Arg(0)))
	if err != nil {
		c.failf("Error: %v", err)
		return
	}
	added := model.VLANSet(ids...).Difference(model.VLANSet(c.d.VLANs...))
	c.d.AddVLANs(ids...)
	c.print("%d VLANs created", added.Cardinality())
}

// undoVLAN deletes one VLAN or a list. VLAN 1 cannot be deleted and every
// listed VLAN must exist.
func undoVLAN(c *call) {
	words := strings.Fields(c.cmd.Arg(0))
	if len(words) > 1 && strings.EqualFold(words[0], "batch") {
		words = words[1:]
	}
	ids, err := util.ParseVLANList(words)
	if err != nil {
		c.fail("Error: Invalid VLAN ID")
		return
	}
	del := model.VLANSet(ids...)
	if del.Contains(1) {
		c.fail("Error: Cannot delete VLAN 1 (default)")
		return
	}
	if missing := del.Difference(model.VLANSet(c.d.VLANs...)); missing.Cardinality() > 0 {
		c.failf("Error: VLAN %s does not exist", util.CompactRange(model.SortedVLANs(missing)))
		return
	}
	c.d.RemoveVLANs(ids...)
	if len(ids) == 1 {
		c.print("VLAN %d deleted", ids[0])
		return
	}
	c.print("%d VLANs deleted", len(ids))
}

func displayVLAN(c *call) {
	rows := [][]string{{"1", "default", "active", c.vlanPorts(1)}}
	for _, v := range c.d.VLANs {
		if v != 1 {
			rows = append(rows, []string{strconv.Itoa(v), fmt.Sprintf("VLAN%04d", v), "active", c.vlanPorts(v)})
		}
	}
	c.lines(cli.Lines([]string{"VLAN", "Name", "Status", "Ports"}, rows)...)
	c.lines("", fmt.Sprintf("Total VLANs: %d", len(rows)))
}

// vlanPorts lists the switched ports carrying vlan, tagged ones marked "(T)".
func (c *call) vlanPorts(vlan int) string {
	var names []string
	for _, p := range c.d.Ports {
		if !p.CarriesVLAN(vlan) {
			continue
		}
		if p.NativeVLAN() != vlan {
			names = append(names, p.Name+"(T)")
		} else {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, " ")
}
