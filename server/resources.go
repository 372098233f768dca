package server

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/pasinskim/mender-mcp/mender"
	"github.com/pasinskim/mender-mcp/security"
)

const resourceMIMEType = "text/plain"

func textContents(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: resourceMIMEType, Text: text},
		},
	}
}

// uriSuffix returns the identifier portion of an id-suffixed resource URI.
func uriSuffix(uri, prefix string) string {
	return strings.TrimPrefix(uri, prefix)
}

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://devices",
		Name:        "Devices",
		Description: "List of all devices in the Mender server",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		devices, err := s.client.ListDevices(ctx, mender.ListDevicesOptions{Limit: 20})
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatDevices(devices)), nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://deployments",
		Name:        "Deployments",
		Description: "List of recent deployments",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		deployments, err := s.client.ListDeployments(ctx, mender.ListDeploymentsOptions{Limit: 10})
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatDeployments(deployments)), nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://artifacts",
		Name:        "Artifacts",
		Description: "List of software artifacts",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		artifacts, err := s.client.ListArtifacts(ctx)
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatArtifacts(artifacts)), nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://releases",
		Name:        "Releases",
		Description: "List of releases",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		releases, err := s.client.ListReleases(ctx, mender.ListReleasesOptions{Limit: 20})
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatReleases(releases)), nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://inventory",
		Name:        "Device Inventories",
		Description: "Inventory attributes for all devices",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		inventories, err := s.client.ListDeviceInventories(ctx, mender.ListDeviceInventoriesOptions{Limit: 20})
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatInventories(inventories)), nil
	})

	s.mcp.AddResource(&mcp.Resource{
		URI:         "mender://inventory-groups",
		Name:        "Inventory Groups",
		Description: "Device inventory groups",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		groups, err := s.client.ListInventoryGroups(ctx)
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatInventoryGroups(groups)), nil
	})

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "mender://devices/{device_id}",
		Name:        "Device Details",
		Description: "Details for a specific device",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		deviceID := uriSuffix(req.Params.URI, "mender://devices/")
		if err := security.ValidateDeviceID(deviceID); err != nil {
			return nil, err
		}
		device, err := s.client.GetDevice(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatDevice(device)), nil
	})

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "mender://deployments/{deployment_id}",
		Name:        "Deployment Details",
		Description: "Details for a specific deployment",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		deploymentID := uriSuffix(req.Params.URI, "mender://deployments/")
		if err := security.ValidateDeploymentID(deploymentID); err != nil {
			return nil, err
		}
		deployment, err := s.client.GetDeployment(ctx, deploymentID)
		if err != nil {
			return nil, err
		}
		return textContents(req.Params.URI, formatDeployment(deployment)), nil
	})

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "mender://inventory/{device_id}",
		Name:        "Device Inventory",
		Description: "Inventory attributes for a specific device",
		MIMEType:    resourceMIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		deviceID := uriSuffix(req.Params.URI, "mender://inventory/")
		if err := security.ValidateDeviceID(deviceID); err != nil {
			return nil, err
		}
		inventory, err := s.client.GetDeviceInventory(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		group, _ := s.client.GetDeviceGroup(ctx, deviceID)
		return textContents(req.Params.URI, formatDeviceInventory(inventory, group)), nil
	})
}
