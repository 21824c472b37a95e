// Guardian Event Simulator control client.
//
// gesctl drives a running gesd daemon over its UDP command socket:
// spawning devices, listing the fleet, pairing leak detectors to valve
// controllers, and starting or killing simulation runs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	c := &client{}

	root := &cobra.Command{
		Use:           "gesctl",
		Short:         "Control a running gesd daemon",
		Version:       fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.host, "host", "127.0.0.1", "daemon address")
	root.PersistentFlags().IntVarP(&c.port, "port", "p", 7700, "daemon port")

	root.AddCommand(
		newSpawnCmd(c),
		newListCmd(c),
		newSimulationCmd(c),
		newLeakDetectorCmd(c),
	)

	return root
}

// newSpawnCmd spawns unpaired devices.
func newSpawnCmd(c *client) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "spawn",
		Short: "Spawn simulated devices",
	}
	cmd.PersistentFlags().IntVarP(&count, "count", "c", 1, "number of devices to spawn")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "valve",
			Short: "Spawn valve controllers",
			RunE: func(_ *cobra.Command, _ []string) error {
				return spawnDevices(c, "valve", count)
			},
		},
		&cobra.Command{
			Use:   "leakdetector",
			Short: "Spawn unpaired leak detectors",
			RunE: func(_ *cobra.Command, _ []string) error {
				return spawnDevices(c, "leak_detector", count)
			},
		},
	)

	return cmd
}

// spawnDevices sends the spawn command and prints the returned metadata.
func spawnDevices(c *client, deviceType string, count int) error {
	reply, err := c.sendSpawn(payload{
		Command: "spawn",
		Type:    deviceType,
		Count:   &count,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Spawned %d device(s)\n\n", len(reply.Devices))
	if len(reply.Devices) > 0 {
		fmt.Println("Devices (instance, serial, mac):")
		for _, d := range reply.Devices {
			fmt.Printf("  - (%s, %s, %s)\n", d.InstanceName, d.SerialNumber, d.MACAddress)
		}
	}
	return nil
}

// newListCmd asks the daemon to report its registry.
func newListCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered entities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "devices",
		Short: "Log every registered device on the daemon",
		Long:  "The daemon writes each device's full document to its own log;\nthis command only triggers the dump.",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := c.send(payload{Command: "list"}); err != nil {
				return err
			}
			fmt.Println("List requested; see the daemon log for device documents.")
			return nil
		},
	})

	return cmd
}

// newSimulationCmd controls the run lifecycle.
func newSimulationCmd(c *client) *cobra.Command {
	var runTime int64

	cmd := &cobra.Command{
		Use:   "simulation",
		Short: "Control the simulation run",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the simulation",
		RunE: func(cc *cobra.Command, _ []string) error {
			p := payload{Command: "run"}
			if cc.Flags().Changed("time") {
				p.Until = &runTime
			}
			if err := c.send(p); err != nil {
				return err
			}
			fmt.Println("Run requested.")
			return nil
		},
	}
	runCmd.Flags().Int64VarP(&runTime, "time", "t", 0, "how long to run the simulation (in seconds)")

	killCmd := &cobra.Command{
		Use:   "kill",
		Short: "Hard-stop the running simulation",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := c.send(payload{Command: "kill"}); err != nil {
				return err
			}
			fmt.Println("Kill requested.")
			return nil
		},
	}

	cmd.AddCommand(runCmd, killCmd)
	return cmd
}

// newLeakDetectorCmd manages detectors paired to valve controllers.
func newLeakDetectorCmd(c *client) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "leakdetector",
		Short: "Manage paired leak detectors",
	}
	cmd.PersistentFlags().StringVar(&parent, "parent", "", "instance name of the parent valve controller")

	pairCmd := &cobra.Command{
		Use:   "pair",
		Short: "Spawn a leak detector paired to a valve controller",
		RunE: func(_ *cobra.Command, _ []string) error {
			if parent == "" {
				return fmt.Errorf("--parent is required")
			}
			if err := c.send(payload{Command: "add_leak_detector", ValveController: parent}); err != nil {
				return err
			}
			fmt.Printf("Pairing requested for %s.\n", parent)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Log the detectors paired to a valve controller",
		RunE: func(_ *cobra.Command, _ []string) error {
			if parent == "" {
				return fmt.Errorf("--parent is required")
			}
			if err := c.send(payload{Command: "list_leak_detectors", ValveController: parent}); err != nil {
				return err
			}
			fmt.Println("List requested; see the daemon log.")
			return nil
		},
	}

	cmd.AddCommand(pairCmd, listCmd)
	return cmd
}
