package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/onedata/onezone-launcher/internal/banner"
	"github.com/onedata/onezone-launcher/internal/deploy"
	"github.com/onedata/onezone-launcher/internal/hosts"
	"github.com/onedata/onezone-launcher/internal/log"
	"github.com/onedata/onezone-launcher/internal/logtail"
	"github.com/onedata/onezone-launcher/internal/netstat"
	"github.com/onedata/onezone-launcher/internal/probe"
	"github.com/onedata/onezone-launcher/internal/relconf"
	"github.com/onedata/onezone-launcher/internal/supervisor"
)

func doUp(cmd *cobra.Command, _ []string) error {
	ctx := log.ContextAttrs(cmd.Context(),
		slog.String("cmd", "up"),
		slog.Int("pid", os.Getpid()))

	tailer := logtail.New(os.Stdout, cfg.LogLevel, logtail.Components()...)

	err := launch(ctx, tailer)
	if err == nil {
		return nil
	}

	fmt.Println()
	fmt.Println("Below is an excerpt of the application logs at the moment of failure:")
	fmt.Println("-----------------------------------------------------------------------")
	tailer.Dump()
	fmt.Println("-----------------------------------------------------------------------")

	if cfg.DebugMode {
		// keep the container alive so the operator can inspect it
		slog.ErrorContext(ctx, "startup failed, staying up in debug mode", "error", err)
		tailer.Follow(ctx)
		return nil
	}
	return err
}

// launch runs the whole startup sequence: configuration preparation,
// spawning the panel service, awaiting readiness, the optional batch
// deployment and finally following the component logs until shutdown.
func launch(ctx context.Context, tailer *logtail.Tailer) error {
	paths := relconf.Paths{OverrideRoot: cfg.OverrideRoot}
	if err := relconf.UpgradeLegacyVMArgs(paths); err != nil {
		return fmt.Errorf("upgrading legacy vm.args: %w", err)
	}

	// an initialized config marks a container that was deployed before
	deployed := relconf.Initialized(paths.GeneratedConfig())
	if !deployed {
		opts := relconf.Options{
			GenerateTestWebCert: cfg.GenerateTestWebCert,
			TestWebCertDomain:   cfg.GeneratedCertDomain,
			TrustTestCA:         cfg.TrustTestCA,
		}
		if err := relconf.WriteGeneratedConfig(paths.GeneratedConfig(), opts); err != nil {
			return fmt.Errorf("writing generated config: %w", err)
		}
	}

	fqdn, err := hosts.FQDN()
	if err != nil {
		return err
	}
	if err := relconf.SetNodeName(paths.VMArgs(), fqdn); err != nil {
		return err
	}
	ensureHostsRecord(ctx, fqdn)

	banner.Starting(os.Stdout)

	runner := supervisor.NewRunner()
	if err := runner.Start(ctx, panelCommand()); err != nil {
		return fmt.Errorf("starting oz_panel: %w", err)
	}
	slog.InfoContext(ctx, "oz_panel spawned, awaiting the REST listener",
		"pid", runner.Pid())

	policy := supervisor.Policy{
		Interval:    cfg.PollInterval,
		MaxAttempts: cfg.PollAttempts,
	}
	panel := supervisor.New(probe.Panel(cfg.PanelURL), policy, runner)

	var outcome supervisor.Outcome
	select {
	case result := <-runner.Done():
		if result.Err != nil {
			return fmt.Errorf("oz_panel exited during startup: %w", result.Err)
		}
		// the start script forked the service and exited cleanly
		outcome = <-panel.Await(ctx)
	case outcome = <-panel.Await(ctx):
	}
	if outcome.State != supervisor.StateReady {
		return fmt.Errorf("oz_panel did not come up: %w", outcome.Err)
	}
	fmt.Println("[  OK  ] oz_panel started")

	if cfg.BatchMode {
		if err := batchDeploy(ctx, deployed, policy, runner); err != nil {
			return err
		}
	}

	showDetails(ctx)
	tailer.Dump()

	if err := os.WriteFile(cfg.ReadyFile, nil, 0644); err != nil {
		slog.WarnContext(ctx, "could not create the ready file",
			"path", cfg.ReadyFile, "error", err)
	}

	addrs, err := banner.Addresses()
	if err != nil {
		slog.WarnContext(ctx, "could not list interface addresses", "error", err)
	}
	banner.Ready(os.Stdout, addrs)

	tailer.Follow(ctx)
	return nil
}

// panelCommand builds the oz_panel start invocation, preferring the
// pre-built artifact tree when an override root is configured.
func panelCommand() supervisor.Command {
	env := os.Environ()
	if cfg.OverrideRoot != "" {
		return supervisor.Command{
			Path: filepath.Join(cfg.OverrideRoot,
				"_build/default/rel/oz_panel/bin/oz_panel"),
			Args: []string{"start"},
			Env:  env,
		}
	}
	return supervisor.Command{
		Path: "service",
		Args: []string{"oz_panel", "start"},
		Env:  env,
	}
}

// ensureHostsRecord makes the fqdn resolvable inside the container. A
// failure here is not fatal, DNS may already cover the name.
func ensureHostsRecord(ctx context.Context, fqdn string) {
	hostname, err := os.Hostname()
	if err != nil {
		slog.WarnContext(ctx, "could not read the hostname", "error", err)
		return
	}

	ip := "127.0.1.1"
	if addrs, err := banner.Addresses(); err == nil && len(addrs) > 0 {
		ip = addrs[0]
	}

	if err := hosts.Ensure(hosts.Path, ip, fqdn, hostname); err != nil {
		slog.WarnContext(ctx, "could not register the hosts record",
			"fqdn", fqdn, "error", err)
	}
}

// batchDeploy drives the non-interactive deployment. A missing or
// mismatched passphrase is advisory only: the panel keeps running and
// the operator finishes the deployment through the web interface.
func batchDeploy(ctx context.Context, deployed bool, policy supervisor.Policy, runner *supervisor.Runner) error {
	if cfg.EmergencyPassphrase == "" {
		if deployed {
			fmt.Println("\nAn existing deployment was found and resumed work.")
		} else {
			fmt.Println("\nONEPANEL_EMERGENCY_PASSPHRASE is required for a batch deployment.")
			fmt.Println("Proceed through the emergency web interface to deploy the zone.")
		}
		return nil
	}

	client, err := deploy.NewClient(cfg.PanelURL, cfg.EmergencyPassphrase)
	if err != nil {
		return err
	}
	zoneCfg, err := deploy.BatchConfig(cfg.ZoneConfig)
	if err != nil {
		return fmt.Errorf("parsing ONEZONE_CONFIG: %w", err)
	}

	headed := false
	progress := func(line string) {
		if !headed {
			fmt.Println("\nConfiguring Onezone:")
			headed = true
		}
		fmt.Println(line)
	}

	started, err := client.Configure(ctx, zoneCfg, progress)
	if errors.Is(err, deploy.ErrAuthentication) {
		fmt.Println("\nThe provided passphrase does not match the existing deployment's.")
		fmt.Println("Configuration was skipped.")
		return nil
	}
	if err != nil {
		return err
	}
	if started {
		fmt.Println("\nCongratulations! New Onezone deployment successfully started.")
		return nil
	}

	// an existing deployment is resuming, wait for its health report
	fmt.Println("\nAn existing deployment was found, waiting for the cluster...")
	nagios := supervisor.New(
		probe.Nagios(cfg.PanelURL, cfg.EmergencyPassphrase), policy, runner)
	outcome := <-nagios.Await(ctx)
	switch {
	case outcome.State == supervisor.StateReady:
		fmt.Println("Existing Onezone deployment resumed work.")
	case errors.Is(outcome.Err, supervisor.ErrDenied):
		// the cluster belongs to another passphrase, its health cannot
		// be read but the deployment itself keeps running
		fmt.Println("\nCannot verify the status of the existing deployment, the provided")
		fmt.Println("passphrase does not match. Please oversee the cluster status manually.")
	default:
		return fmt.Errorf("the existing deployment did not recover: %w", outcome.Err)
	}
	return nil
}

// showDetails prints the docker-level container information. All of it
// is best effort, the daemon socket is only mounted in demo setups.
func showDetails(ctx context.Context) {
	var details banner.Details
	id, err := banner.ContainerID("/proc/self/cgroup")
	if err == nil {
		details, err = banner.Inspect(ctx, banner.DockerSocket, id)
	}
	if err != nil {
		slog.DebugContext(ctx, "container details unavailable", "error", err)
	}

	var listening map[uint16]bool
	if ports := details.ExposedPorts(); len(ports) > 0 {
		listening = netstat.Listening(ctx, ports)
	}
	details.Write(os.Stdout, listening)
}
