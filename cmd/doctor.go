package cmd

import (
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/crew/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("crew doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
	fmt.Printf("  Go:       %s\n", goruntime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (not found, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Printf("  Workspace: %s", cfg.Workspace)
	if info, err := os.Stat(cfg.Workspace); err != nil || !info.IsDir() {
		fmt.Println(" (MISSING)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Printf("  Skills:    %s", cfg.SkillsDir)
	if _, err := os.Stat(cfg.SkillsDir); err != nil {
		fmt.Println(" (none)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	checkEnv("API_KEY", cfg.Provider.APIKey, true)
	checkEnv("TAVILY_API_KEY", cfg.Search.APIKey, false)
	if cfg.Provider.Model != "" {
		fmt.Printf("  Model:     %s\n", cfg.Provider.Model)
	}
	if cfg.Telemetry.Endpoint != "" {
		fmt.Printf("  Telemetry: %s\n", cfg.Telemetry.Endpoint)
	}
}

func checkEnv(name, value string, required bool) {
	if value != "" {
		fmt.Printf("  %s: set\n", name)
		return
	}
	if required {
		fmt.Printf("  %s: NOT SET (required)\n", name)
	} else {
		fmt.Printf("  %s: not set (search tools disabled)\n", name)
	}
}
