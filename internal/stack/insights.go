package stack

import (
	"fmt"

	"github.com/jeffrosenberg/random-notion-infra/internal/function"
	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
)

// InsightsMapping is the Mappings table holding the Lambda Insights layer ARN
// per region.
const InsightsMapping = "LambdaInsightsLayer"

// insightsAccount publishes the Lambda Insights extension layers.
const insightsAccount = "580247275435"

// insightsLayers maps an extension version to the layer name and version
// per architecture.
var insightsLayers = map[string]map[string]string{
	"1.0.98.0": {
		function.ArchX86_64: "LambdaInsightsExtension:14",
	},
	"1.0.119.0": {
		function.ArchX86_64: "LambdaInsightsExtension:16",
		function.ArchARM64:  "LambdaInsightsExtension-Arm64:1",
	},
	"1.0.135.0": {
		function.ArchX86_64: "LambdaInsightsExtension:18",
		function.ArchARM64:  "LambdaInsightsExtension-Arm64:2",
	},
}

// InsightsRegions are the regions the mapping covers.
var InsightsRegions = []string{
	"ap-northeast-1", "ap-northeast-2", "ap-south-1", "ap-southeast-1",
	"ap-southeast-2", "ca-central-1", "eu-central-1", "eu-north-1",
	"eu-west-1", "eu-west-2", "eu-west-3", "sa-east-1",
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
}

// InsightsLayerMapping returns the region mapping of the Lambda Insights
// layer for version on arch.
func InsightsLayerMapping(version, arch string) (intrinsics.Mapping, error) {
	byArch, ok := insightsLayers[version]
	if !ok {
		return nil, fmt.Errorf("unsupported lambda insights version %q", version)
	}
	layer, ok := byArch[arch]
	if !ok {
		return nil, fmt.Errorf("lambda insights %s is not published for %s", version, arch)
	}

	m := make(intrinsics.Mapping, len(InsightsRegions))
	for _, region := range InsightsRegions {
		m[region] = map[string]any{
			"Arn": fmt.Sprintf("arn:aws:lambda:%s:%s:layer:%s", region, insightsAccount, layer),
		}
	}
	return m, nil
}

// insightsLayer looks up the layer ARN for the deployment region.
func insightsLayer() intrinsics.FindInMap {
	return intrinsics.FindInMap{MapName: InsightsMapping, TopKey: intrinsics.AWS_REGION, SecondKey: "Arn"}
}
