// Package apigatewayv2 contains AWS::ApiGatewayV2 resource types for HTTP APIs.
package apigatewayv2

// Api represents an AWS::ApiGatewayV2::Api resource.
type Api struct {
	Description  any `json:"Description,omitempty"`
	Name         any `json:"Name"`
	ProtocolType any `json:"ProtocolType"`
}

// ResourceType returns the CloudFormation resource type.
func (r Api) ResourceType() string {
	return "AWS::ApiGatewayV2::Api"
}

// Integration represents an AWS::ApiGatewayV2::Integration resource.
type Integration struct {
	ApiId                any `json:"ApiId"`
	IntegrationType      any `json:"IntegrationType"`
	IntegrationUri       any `json:"IntegrationUri,omitempty"`
	PayloadFormatVersion any `json:"PayloadFormatVersion,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Integration) ResourceType() string {
	return "AWS::ApiGatewayV2::Integration"
}

// Route represents an AWS::ApiGatewayV2::Route resource.
type Route struct {
	ApiId             any `json:"ApiId"`
	AuthorizationType any `json:"AuthorizationType,omitempty"`
	RouteKey          any `json:"RouteKey"`
	Target            any `json:"Target,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Route) ResourceType() string {
	return "AWS::ApiGatewayV2::Route"
}

// Stage represents an AWS::ApiGatewayV2::Stage resource.
type Stage struct {
	ApiId      any  `json:"ApiId"`
	AutoDeploy bool `json:"AutoDeploy,omitempty"`
	StageName  any  `json:"StageName"`
}

// ResourceType returns the CloudFormation resource type.
func (r Stage) ResourceType() string {
	return "AWS::ApiGatewayV2::Stage"
}

// Integration types and payload versions used by HTTP APIs.
const (
	ProtocolHTTP           = "HTTP"
	IntegrationAWSProxy    = "AWS_PROXY"
	PayloadFormatVersion20 = "2.0"
	DefaultStageName       = "$default"
)
