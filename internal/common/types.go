package common

// CloudFormation stack name, ex. prod-checkout-api
type StackName string

// Name of a cross-stack export, ex. prod-checkout-queue-arn
type ExportName string

// Logical application a stack belongs to, ex. checkout
type AppName string

// Deployment environment parsed from a stack name or tag, ex. prod
type Environment string

// Graph node id at either granularity, ex. checkout/api or checkout
type NodeID string

// The CFN type of a resource, ex. AWS::S3::Bucket
type ResourceType string

// AWS account number the topology was fetched from
type AccountID string
