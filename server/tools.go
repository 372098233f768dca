package server

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pasinskim/mender-mcp/mender"
	"github.com/pasinskim/mender-mcp/security"
)

// Tool input shapes. Validation happens through the security schemas inside
// each handler, before any network call; the JSON schemas below mirror the
// same rules so well-behaved clients reject bad input early.

type deviceIDInput struct {
	DeviceID string `json:"device_id"`
}

type deploymentIDInput struct {
	DeploymentID string `json:"deployment_id"`
}

type releaseNameInput struct {
	ReleaseName string `json:"release_name"`
}

type listDevicesInput struct {
	Status     string `json:"status,omitempty"`
	DeviceType string `json:"device_type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type listDeploymentsInput struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type listReleasesInput struct {
	Name  string `json:"name,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type listInventoryInput struct {
	Limit        int    `json:"limit,omitempty"`
	HasAttribute string `json:"has_attribute,omitempty"`
}

type emptyInput struct{}

type deploymentDeviceInput struct {
	DeploymentID string `json:"deployment_id"`
	DeviceID     string `json:"device_id"`
}

type listAuditLogsInput struct {
	User       string `json:"user,omitempty"`
	Action     string `json:"action,omitempty"`
	ObjectType string `json:"object_type,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func float64Ptr(v float64) *float64 { return &v }

func limitSchema(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: description,
		Minimum:     float64Ptr(1),
		Maximum:     float64Ptr(security.MaxLimit),
	}
}

func requiredIDSchema(field, description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			field: {Type: "string", Description: description},
		},
		Required: []string{field},
	}
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_device_status",
		Description: "Get the current status of a specific device",
		InputSchema: requiredIDSchema("device_id", "The ID of the device to check"),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in deviceIDInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateDeviceID(in.DeviceID); err != nil {
			return errorResult(err), nil, nil
		}
		device, err := s.client.GetDevice(ctx, in.DeviceID)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDevice(device)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_devices",
		Description: "List devices with optional filtering",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"status": {
					Type:        "string",
					Description: "Filter by device status",
					Enum:        []any{"accepted", "rejected", "pending", "noauth", "preauth"},
				},
				"device_type": {Type: "string", Description: "Filter by device type"},
				"limit":       limitSchema("Maximum number of devices to return"),
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listDevicesInput) (*mcp.CallToolResult, any, error) {
		if in.Status != "" {
			if err := security.ValidateDeviceStatus(in.Status); err != nil {
				return errorResult(err), nil, nil
			}
		}
		if in.DeviceType != "" {
			if err := security.ValidateDeviceType(in.DeviceType); err != nil {
				return errorResult(err), nil, nil
			}
		}
		limit := in.Limit
		if limit == 0 {
			limit = 20
		}
		if err := security.ValidateLimit(limit); err != nil {
			return errorResult(err), nil, nil
		}
		devices, err := s.client.ListDevices(ctx, mender.ListDevicesOptions{
			Status:     in.Status,
			DeviceType: in.DeviceType,
			Limit:      limit,
		})
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDevices(devices)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_deployment_status",
		Description: "Get the status and details of a specific deployment",
		InputSchema: requiredIDSchema("deployment_id", "The ID of the deployment to check"),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in deploymentIDInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateDeploymentID(in.DeploymentID); err != nil {
			return errorResult(err), nil, nil
		}
		deployment, err := s.client.GetDeployment(ctx, in.DeploymentID)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDeployment(deployment)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_deployments",
		Description: "List deployments with optional filtering",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"status": {
					Type:        "string",
					Description: "Filter by deployment status",
					Enum:        []any{"inprogress", "pending", "finished"},
				},
				"limit": limitSchema("Maximum number of deployments to return"),
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listDeploymentsInput) (*mcp.CallToolResult, any, error) {
		if in.Status != "" {
			if err := security.ValidateDeploymentStatus(in.Status); err != nil {
				return errorResult(err), nil, nil
			}
		}
		limit := in.Limit
		if limit == 0 {
			limit = 10
		}
		if err := security.ValidateLimit(limit); err != nil {
			return errorResult(err), nil, nil
		}
		deployments, err := s.client.ListDeployments(ctx, mender.ListDeploymentsOptions{
			Status: in.Status,
			Limit:  limit,
		})
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDeployments(deployments)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_releases",
		Description: "List releases with optional filtering by name or tag",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name":  {Type: "string", Description: "Filter by release name (substring match)"},
				"tag":   {Type: "string", Description: "Filter by release tag key or value"},
				"limit": limitSchema("Maximum number of releases to return"),
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listReleasesInput) (*mcp.CallToolResult, any, error) {
		if in.Name != "" {
			if err := security.ValidateReleaseName(in.Name); err != nil {
				return errorResult(err), nil, nil
			}
		}
		limit := in.Limit
		if limit == 0 {
			limit = 20
		}
		if err := security.ValidateLimit(limit); err != nil {
			return errorResult(err), nil, nil
		}
		releases, err := s.client.ListReleases(ctx, mender.ListReleasesOptions{
			Name:  in.Name,
			Tag:   in.Tag,
			Limit: limit,
		})
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatReleases(releases)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_release_status",
		Description: "Get the details of a specific release",
		InputSchema: requiredIDSchema("release_name", "The name of the release to check"),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in releaseNameInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateReleaseName(in.ReleaseName); err != nil {
			return errorResult(err), nil, nil
		}
		release, err := s.client.GetRelease(ctx, in.ReleaseName)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatRelease(release)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_device_inventory",
		Description: "Get complete inventory attributes for a specific device",
		InputSchema: requiredIDSchema("device_id", "The ID of the device to get inventory for"),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in deviceIDInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateDeviceID(in.DeviceID); err != nil {
			return errorResult(err), nil, nil
		}
		inventory, err := s.client.GetDeviceInventory(ctx, in.DeviceID)
		if err != nil {
			return errorResult(err), nil, nil
		}
		// Group membership is best-effort decoration of the inventory view.
		group, _ := s.client.GetDeviceGroup(ctx, in.DeviceID)
		return textResult(formatDeviceInventory(inventory, group)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_device_inventory",
		Description: "List device inventories with optional filtering",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"limit":         limitSchema("Maximum number of device inventories to return"),
				"has_attribute": {Type: "string", Description: "Filter devices that have a specific attribute name"},
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listInventoryInput) (*mcp.CallToolResult, any, error) {
		if in.HasAttribute != "" {
			if err := security.ValidateAttributeName(in.HasAttribute); err != nil {
				return errorResult(err), nil, nil
			}
		}
		limit := in.Limit
		if limit == 0 {
			limit = 20
		}
		if err := security.ValidateLimit(limit); err != nil {
			return errorResult(err), nil, nil
		}
		inventories, err := s.client.ListDeviceInventories(ctx, mender.ListDeviceInventoriesOptions{
			Limit:        limit,
			HasAttribute: in.HasAttribute,
		})
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatInventories(inventories)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_inventory_groups",
		Description: "Get all device inventory groups",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in emptyInput) (*mcp.CallToolResult, any, error) {
		groups, err := s.client.ListInventoryGroups(ctx)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatInventoryGroups(groups)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_deployment_device_log",
		Description: "Get deployment logs for a specific device in a deployment",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"deployment_id": {Type: "string", Description: "The deployment ID"},
				"device_id":     {Type: "string", Description: "The device ID"},
			},
			Required: []string{"deployment_id", "device_id"},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in deploymentDeviceInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateDeploymentID(in.DeploymentID); err != nil {
			return errorResult(err), nil, nil
		}
		if err := security.ValidateDeviceID(in.DeviceID); err != nil {
			return errorResult(err), nil, nil
		}
		log, err := s.client.GetDeploymentDeviceLog(ctx, in.DeploymentID, in.DeviceID)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDeploymentLog(log)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_deployment_logs",
		Description: "Get deployment logs for all devices in a deployment",
		InputSchema: requiredIDSchema("deployment_id", "The deployment ID"),
	}, func(ctx context.Context, req *mcp.CallToolRequest, in deploymentIDInput) (*mcp.CallToolResult, any, error) {
		if err := security.ValidateDeploymentID(in.DeploymentID); err != nil {
			return errorResult(err), nil, nil
		}
		logs, err := s.client.GetDeploymentLogs(ctx, in.DeploymentID)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatDeploymentLogs(logs)), nil, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_audit_logs",
		Description: "List audit log entries with optional filtering",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"user":        {Type: "string", Description: "Filter by the user who performed the action"},
				"action":      {Type: "string", Description: "Filter by action name"},
				"object_type": {Type: "string", Description: "Filter by affected object type"},
				"start_date":  {Type: "string", Description: "Only entries after this RFC 3339 timestamp"},
				"end_date":    {Type: "string", Description: "Only entries before this RFC 3339 timestamp"},
				"limit":       limitSchema("Maximum number of audit entries to return"),
			},
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, in listAuditLogsInput) (*mcp.CallToolResult, any, error) {
		opts := mender.AuditLogOptions{
			User:       in.User,
			Action:     in.Action,
			ObjectType: in.ObjectType,
		}
		for field, value := range map[string]string{"user": in.User, "action": in.Action, "object_type": in.ObjectType} {
			if value == "" {
				continue
			}
			if err := security.ValidateAuditFilter(field, value); err != nil {
				return errorResult(err), nil, nil
			}
		}
		if in.StartDate != "" {
			start, err := security.ParseAuditTime("start_date", in.StartDate)
			if err != nil {
				return errorResult(err), nil, nil
			}
			opts.Start = start
		}
		if in.EndDate != "" {
			end, err := security.ParseAuditTime("end_date", in.EndDate)
			if err != nil {
				return errorResult(err), nil, nil
			}
			opts.End = end
		}
		limit := in.Limit
		if limit == 0 {
			limit = 20
		}
		if err := security.ValidateLimit(limit); err != nil {
			return errorResult(err), nil, nil
		}
		opts.Limit = limit

		entries, err := s.client.ListAuditLogs(ctx, opts)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(formatAuditLogs(entries)), nil, nil
	})
}
