// Package lambda contains AWS::Lambda resource types.
package lambda

// Function represents an AWS::Lambda::Function resource.
type Function struct {
	Architectures []any                   `json:"Architectures,omitempty"`
	Code          *Function_Code          `json:"Code,omitempty"`
	Description   any                     `json:"Description,omitempty"`
	Environment   *Function_Environment   `json:"Environment,omitempty"`
	FunctionName  any                     `json:"FunctionName,omitempty"`
	Handler       any                     `json:"Handler,omitempty"`
	Layers        []any                   `json:"Layers,omitempty"`
	MemorySize    int                     `json:"MemorySize,omitempty"`
	Role          any                     `json:"Role,omitempty"`
	Runtime       any                     `json:"Runtime,omitempty"`
	Tags          []any                   `json:"Tags,omitempty"`
	Timeout       int                     `json:"Timeout,omitempty"`
	TracingConfig *Function_TracingConfig `json:"TracingConfig,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Function_Code is the deployment package of a function.
type Function_Code struct {
	S3Bucket any `json:"S3Bucket,omitempty"`
	S3Key    any `json:"S3Key,omitempty"`
	ZipFile  any `json:"ZipFile,omitempty"`
}

// Function_Environment holds the environment variables of a function.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Function_TracingConfig sets the X-Ray tracing mode.
type Function_TracingConfig struct {
	Mode any `json:"Mode,omitempty"`
}

// Permission represents an AWS::Lambda::Permission resource.
type Permission struct {
	Action       any `json:"Action"`
	FunctionName any `json:"FunctionName"`
	Principal    any `json:"Principal"`
	SourceArn    any `json:"SourceArn,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Permission) ResourceType() string {
	return "AWS::Lambda::Permission"
}
