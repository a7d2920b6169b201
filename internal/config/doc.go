// Package config loads the cptmerge configuration.
//
// Values come from three layers, highest precedence first:
//
//	1. Environment variables with the CPT_ prefix (CPT_SERVER_PORT, CPT_CHART_PROJECT_NAME, ...)
//	2. A YAML file named by CPT_CONFIG_FILE, or config.yaml / configs/config.yaml
//	   in the working directory, or config.yaml next to the executable
//	3. The defaults declared in the struct tags
//
// Load validates the merged result with go-playground/validator tags plus a
// few cross-field rules, so callers can trust every field they read.
//
// Example config.yaml:
//
//	server:
//	  port: 8080
//	  max_upload_mb: 32
//	chart:
//	  project_name: Quay Wall
//	  reference_elevation: 100.01
//	session:
//	  ttl: 2h
package config
