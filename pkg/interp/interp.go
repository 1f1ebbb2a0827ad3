// Package interp is the interpreted command backend. It runs one console line
// against a copy of a device: the line is parsed with the active vendor
// strategy, checked against the current view, applied, and echoed with its
// output into the copy's console.
//
// Execute never touches its inputs. Network-wide effects (routes, leases on
// other devices) are left to the caller, which merges the returned device and
// re-converges.
package interp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/newtsim/pkg/dhcp"
	"github.com/newtron-network/newtsim/pkg/fabric"
	"github.com/newtron-network/newtsim/pkg/model"
	"github.com/newtron-network/newtsim/pkg/strategy"
	"github.com/newtron-network/newtsim/pkg/util"
)

// Input is one command execution request.
type Input struct {
	Command  string
	Device   *model.Device
	Devices  []*model.Device // converged topology, read only
	Cables   []*model.Cable
	History  []string // accepted commands of the device, oldest first
	Strategy *strategy.Strategy
	Now      time.Time
}

// Result is the outcome of Execute.
type Result struct {
	Device      *model.Device // updated copy, console included
	Output      []string
	Transition  *model.View // set when the view changed
	NewHostname string      // set when the hostname changed
	Traffic     *model.Traffic
	Lease       *dhcp.Grant // to be applied on Lease.Server
	Accepted    bool
}

// call is the state of one execution, shared by the command handlers.
type call struct {
	in  Input
	s   *strategy.Strategy
	d   *model.Device
	cmd strategy.Command
	res *Result

	out    []string
	failed bool
	fab    *fabric.Fabric
}

type handler func(c *call)

// Execute runs in.Command on a copy of in.Device.
func Execute(in Input) Result {
	s := in.Strategy
	if s == nil {
		s = strategy.Resolve("")
	}
	d := in.Device.Clone()
	res := Result{Device: d}

	line := strings.TrimSpace(in.Command)
	prompt := s.Prompt(d)
	if line == "" {
		d.AppendConsole(prompt)
		return res
	}

	c := &call{in: in, s: s, d: d, res: &res}
	view, hostname := d.CLI.View, d.Hostname

	cmd, err := s.Parse(line, view)
	switch {
	case errors.Is(err, strategy.ErrAmbiguousCommand):
		c.fail(s.AmbiguousCommand(d, line))
	case err != nil:
		c.fail(s.UnknownCommand(d, line))
	case !s.Allowed(cmd.Op, view):
		c.fail(s.ViewRequired(d, s.RequiredView(cmd.Op)))
	default:
		c.cmd = cmd
		h, ok := handlers[cmd.Op]
		if !ok {
			c.fail(s.UnknownCommand(d, line))
			break
		}
		h(c)
	}

	if c.failed {
		// Handlers may have touched the copy before failing
		d = in.Device.Clone()
		res = Result{Device: d}
	}
	d.AppendConsole(prompt + line)
	d.AppendConsole(c.out...)
	res.Output = c.out
	res.Accepted = !c.failed
	if res.Accepted {
		if d.CLI.View != view {
			v := d.CLI.View
			res.Transition = &v
		}
		if d.Hostname != hostname {
			res.NewHostname = d.Hostname
		}
	}

	util.WithCommand(d.ID, line).Debugf("interp: op=%s accepted=%v view=%s", cmd.Op, res.Accepted, d.CLI.View)
	return res
}

func (c *call) print(format string, args ...interface{}) {
	c.out = append(c.out, fmt.Sprintf(format, args...))
}

func (c *call) lines(ls ...string) {
	c.out = append(c.out, ls...)
}

// fail prints a single error line and marks the command rejected.
func (c *call) fail(msg string) {
	c.out = append(c.out, msg)
	c.failed = true
}

func (c *call) failf(format string, args ...interface{}) {
	c.fail(fmt.Sprintf(format, args...))
}

// enter moves the device to view with sub-context ctx, failing when the
// strategy's view graph has no such edge.
func (c *call) enter(view model.View, ctx string) bool {
	if !c.s.CanEnter(c.d.CLI.View, view) {
		c.fail(c.s.ViewRequired(c.d, model.ViewSystem))
		return false
	}
	c.d.CLI.Enter(view, ctx)
	return true
}

func (c *call) vrp() bool {
	return c.s.UsesVRP(c.d)
}

// topology returns the devices of the network with the executing device's
// current copy in place of its stored version.
func (c *call) topology() []*model.Device {
	if model.FindDevice(c.in.Devices, c.d.ID) == nil {
		return append(append([]*model.Device(nil), c.in.Devices...), c.d)
	}
	return model.ReplaceDevice(c.in.Devices, c.d)
}

func (c *call) fabric() *fabric.Fabric {
	if c.fab == nil {
		c.fab = fabric.Build(c.topology(), c.in.Cables)
	}
	return c.fab
}

// port returns the port of the interface view.
func (c *call) port() *model.Port {
	return c.d.PortByID(c.d.CLI.Interface)
}

var handlers map[strategy.Op]handler

func init() {
	handlers = map[strategy.Op]handler{
		strategy.OpSystemView:     systemView,
		strategy.OpQuit:           quit,
		strategy.OpReturn:         returnUser,
		strategy.OpSysname:        sysname,
		strategy.OpUndoSysname:    undoSysname,
		strategy.OpDisplayVersion: displayVersion,
		strategy.OpDisplayConfig:  displayConfig,
		strategy.OpDisplayHistory: displayHistory,
		strategy.OpDisplayClock:   displayClock,
		strategy.OpSave:           save,
		strategy.OpHelp:           help,

		strategy.OpInterface:        enterInterface,
		strategy.OpDisplayIPBrief:   displayIPBrief,
		strategy.OpDisplayInterface: displayInterface,
		strategy.OpIPAddress:        ipAddress,
		strategy.OpUndoIPAddress:    undoIPAddress,
		strategy.OpShutdown:         shutdown,
		strategy.OpUndoShutdown:     undoShutdown,
		strategy.OpDescription:      description,
		strategy.OpUndoDescription:  undoDescription,
		strategy.OpLinkType:         linkType,
		strategy.OpAccessVLAN:       accessVLAN,
		strategy.OpTrunkAllow:       trunkAllow,
		strategy.OpSpeed:            speed,
		strategy.OpDuplex:           duplex,
		strategy.OpOSPFCost:         ospfCost,
		strategy.OpUndoOSPFCost:     undoOSPFCost,
		strategy.OpRouted:           routedPort,
		strategy.OpSwitched:         switchedPort,

		strategy.OpVLAN:        createVLAN,
		strategy.OpVLANBatch:   vlanBatch,
		strategy.OpUndoVLAN:    undoVLAN,
		strategy.OpDisplayVLAN: displayVLAN,

		strategy.OpDisplayRoutes:   displayRoutes,
		strategy.OpDisplayOSPFPeer: displayOSPFPeer,
		strategy.OpStaticRoute:     staticRoute,
		strategy.OpUndoStaticRoute: undoStaticRoute,
		strategy.OpOSPF:            enableOSPF,
		strategy.OpUndoOSPF:        undoOSPF,
		strategy.OpOSPFNetwork:     ospfNetwork,
		strategy.OpBGP:             enableBGP,
		strategy.OpUndoBGP:         undoBGP,
		strategy.OpBGPPeer:         bgpPeer,
		strategy.OpUndoBGPPeer:     undoBGPPeer,
		strategy.OpRouterID:        routerID,
		strategy.OpDisplayBGPPeer:  displayBGPPeer,

		strategy.OpDHCPEnable:      dhcpEnable,
		strategy.OpUndoDHCPEnable:  undoDHCPEnable,
		strategy.OpPool:            enterPool,
		strategy.OpUndoPool:        undoPool,
		strategy.OpPoolNetwork:     poolNetwork,
		strategy.OpPoolGateway:     poolGateway,
		strategy.OpPoolDNS:         poolDNS,
		strategy.OpPoolLease:       poolLease,
		strategy.OpPoolDomain:      poolDomain,
		strategy.OpPoolExclude:     poolExclude,
		strategy.OpDHCPExclude:     dhcpExclude,
		strategy.OpDisplayPool:     displayPool,
		strategy.OpDisplayBindings: displayBindings,
		strategy.OpResetBindings:   resetBindings,

		strategy.OpACL:        enterACL,
		strategy.OpACLRule:    aclRule,
		strategy.OpUndoRule:   undoRule,
		strategy.OpUndoACL:    undoACL,
		strategy.OpDisplayACL: displayACL,

		strategy.OpSTPEnable:   stpEnable,
		strategy.OpUndoSTP:     undoSTP,
		strategy.OpSTPMode:     stpMode,
		strategy.OpSTPPriority: stpPriority,
		strategy.OpSTPRoot:     stpRoot,
		strategy.OpSTPCost:     stpCost,
		strategy.OpSTPEdge:     stpEdge,
		strategy.OpUndoSTPEdge: undoSTPEdge,
		strategy.OpDisplaySTP:  displaySTP,

		strategy.OpLAGMember:     lagMember,
		strategy.OpUndoLAGMember: undoLAGMember,
		strategy.OpLAGMode:       lagMode,
		strategy.OpLoadBalance:   loadBalance,
		strategy.OpUndoInterface: undoInterface,
		strategy.OpDisplayLAG:    displayLAG,

		strategy.OpTrafficFilter:       trafficFilter,
		strategy.OpUndoTrafficFilter:   undoTrafficFilter,
		strategy.OpPortSecurity:        portSecurity,
		strategy.OpUndoPortSecurity:    undoPortSecurity,
		strategy.OpPortSecurityMax:     portSecurityMax,
		strategy.OpPortSecurityAction:  portSecurityAction,
		strategy.OpDisplayPortSecurity: displayPortSecurity,
		strategy.OpAAA:                 aaa,
		strategy.OpLocalUser:           localUser,
		strategy.OpUserPrivilege:       userPrivilege,
		strategy.OpUndoLocalUser:       undoLocalUser,
		strategy.OpSSHServer:           sshServer,
		strategy.OpUndoSSHServer:       undoSSHServer,
		strategy.OpDisplayUsers:        displayUsers,

		strategy.OpPing:        ping,
		strategy.OpTraceroute:  traceroute,
		strategy.OpIPConfig:    ipconfig,
		strategy.OpHostIP:      hostIP,
		strategy.OpHostDHCP:    hostDHCP,
		strategy.OpHostRelease: hostRelease,
	}
}
