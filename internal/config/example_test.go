package config_test

import (
	"fmt"

	"github.com/taskfocus/taskfocus/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Backend:", cfg.Window.Backend)
	fmt.Println("Retry Delay:", cfg.Window.RetryDelay)
	// Output:
	// Backend: auto
	// Retry Delay: 160ms
}

// Example of setting the web port with validation
func ExampleConfig_SetWebPort() {
	cfg := config.Default()

	if err := cfg.SetWebPort(8080); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Port set to:", cfg.Web.Port)
	}

	if err := cfg.SetWebPort(70000); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Port set to: 8080
	// Error: port must be between 1 and 65535, got 70000
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	// Output:
	// Configuration is valid
}
