// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shopwhiz/internal/common/config"
	"shopwhiz/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

var registryPath = defaultRegistryPath

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	generateCmd := flag.NewFlagSet("generate", flag.ExitOnError)

	// Add command flags
	idAdd := addCmd.String("id", "", "Activity ID (e.g., extract-filters)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Extract Filters)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., shopping)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., extract-filters)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, collaborators, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", defaultRegistryPath, "Path to registry file")

	// Generate command flags
	generateCmd.StringVar(&registryPath, "path", defaultRegistryPath, "Path to registry file")
	configPath := generateCmd.String("config", "configs/config.yaml", "Service config, for worker timeouts and retries")
	genVersion := generateCmd.String("version", "1.0.0", "Version stamped on generated activities")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		activity := registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              "10s",
			Retries:              0,
			Workflows:            []string{},
			Tags:                 []string{},
		}
		err := addActivity(&activity)
		if err != nil {
			fmt.Printf("Error adding activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added activity: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err := updateActivity(*idUpdate, *field, *value)
		if err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		err := validateRegistry()
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "generate":
		generateCmd.Parse(os.Args[2:])
		count, err := generateActivities(*configPath, *genVersion)
		if err != nil {
			fmt.Printf("Error generating activities: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %d activities into %s\n", count, registryPath)

	case "help":
		fallthrough
	default:
		help()
	}
}

func addActivity(activity *registry.Activity) error {
	reg, err := loadOrCreate(registryPath)
	if err != nil {
		return err
	}

	if reg.Find(activity.ID) != nil {
		return fmt.Errorf("activity with ID %s already exists", activity.ID)
	}

	reg.Upsert(*activity)
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	return registry.SaveRegistry(reg, registryPath)
}

// generateActivities refreshes the entries for every implemented task type,
// leaving hand-added activities untouched.
func generateActivities(configPath, version string) (int, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}

	reg, err := loadOrCreate(registryPath)
	if err != nil {
		return 0, err
	}

	activities := catalog(cfg, version)
	for _, a := range activities {
		reg.Upsert(a)
	}
	reg.LastUpdated = time.Now().Format(time.RFC3339)

	if err := reg.Validate(); err != nil {
		return 0, err
	}
	return len(activities), registry.SaveRegistry(reg, registryPath)
}

func updateActivity(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	activity := reg.Find(id)
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}
	if err := applyField(activity, field, value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	reg.LastUpdated = time.Now().Format(time.RFC3339)
	return registry.SaveRegistry(reg, registryPath)
}

// applyField sets one editable field. List fields take a comma-separated value.
func applyField(a *registry.Activity, field, value string) error {
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "taskType":
		a.TaskType = value
	case "timeout":
		a.Timeout = value
	case "fallback":
		a.Fallback = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	case "collaborators":
		a.Collaborators = splitList(value)
	case "workflows":
		a.Workflows = splitList(value)
	case "tags":
		a.Tags = splitList(value)
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))
	return nil
}

// loadOrCreate starts an empty registry when path does not exist yet.
func loadOrCreate(path string) (*registry.ActivityRegistry, error) {
	reg, err := registry.LoadRegistry(path)
	if err == nil {
		return reg, nil
	}
	if os.IsNotExist(err) {
		return &registry.ActivityRegistry{
			Version:     "1.0.0",
			LastUpdated: time.Now().Format(time.RFC3339),
			Activities:  []registry.Activity{},
		}, nil
	}
	return nil, fmt.Errorf("failed to load registry: %w", err)
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add     Add a new activity to the registry
  update  Update an existing activity's field
  validate Validate the registry file
  generate Write schemas and settings for every implemented task type
  help    Show this help message

Examples:
  registry-updater add -id notify-price-drop -displayName "Notify Price Drop" -description "Alerts when a tracked product gets cheaper" -category shopping -taskType notify-price-drop
  registry-updater update -id rank-results -field status -value verified
  registry-updater update -id search-products -field collaborators -value web_search
  registry-updater validate -path configs/activity-registry.json
  registry-updater generate -config configs/config.yaml -version 1.1.0

Use 'registry-updater <command> -h' for more information about a command.

`)
}
