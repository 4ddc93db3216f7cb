package cfn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/ratelimit"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/stackatlas/cfn-depgraph/internal/common"
)

// DescribeStacksPager is an interface for cloudformation.DescribeStacksPaginator
type DescribeStacksPager interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// ListExportsPager is an interface for cloudformation.ListExportsPaginator
type ListExportsPager interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*cloudformation.Options)) (*cloudformation.ListExportsOutput, error)
}

// ListImportsPager is an interface for cloudformation.ListImportsPaginator
type ListImportsPager interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*cloudformation.Options)) (*cloudformation.ListImportsOutput, error)
}

// ListStackResourcesPager is an interface for cloudformation.ListStackResourcesPaginator
type ListStackResourcesPager interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*cloudformation.Options)) (*cloudformation.ListStackResourcesOutput, error)
}

// API hands out paginators for the CloudFormation calls the tool makes.
// Tests substitute fakes.
type API interface {
	DescribeStacksPager() DescribeStacksPager
	ListExportsPager() ListExportsPager
	ListImportsPager(export common.ExportName) ListImportsPager
	ListStackResourcesPager(stack common.StackName) ListStackResourcesPager
}

type sdkAPI struct {
	client *cloudformation.Client
}

func (s *sdkAPI) DescribeStacksPager() DescribeStacksPager {
	return cloudformation.NewDescribeStacksPaginator(s.client, &cloudformation.DescribeStacksInput{})
}

func (s *sdkAPI) ListExportsPager() ListExportsPager {
	return cloudformation.NewListExportsPaginator(s.client, &cloudformation.ListExportsInput{})
}

func (s *sdkAPI) ListImportsPager(export common.ExportName) ListImportsPager {
	name := string(export)
	return cloudformation.NewListImportsPaginator(s.client, &cloudformation.ListImportsInput{
		ExportName: &name,
	})
}

func (s *sdkAPI) ListStackResourcesPager(stack common.StackName) ListStackResourcesPager {
	name := string(stack)
	return cloudformation.NewListStackResourcesPaginator(s.client, &cloudformation.ListStackResourcesInput{
		StackName: &name,
	})
}

// retryer factory (overridable in tests)
var newRetryer = func() aws.Retryer {
	return retry.NewAdaptiveMode(func(o *retry.AdaptiveModeOptions) {
		o.StandardOptions = append(o.StandardOptions, func(so *retry.StandardOptions) {
			// CloudFormation list calls throttle aggressively when walking
			// every export; allow more attempts than the SDK default and let
			// adaptive mode do the sleeping.
			so.MaxAttempts = 8
			so.RateLimiter = ratelimit.None
		})
	})
}

// Client wraps the CloudFormation API for one account/region.
type Client struct {
	api     API
	Account common.AccountID
	Region  string
}

// NewClient builds a client from the ambient AWS configuration, with
// optional profile and region overrides. The caller identity is resolved up
// front so results can be attributed to an account.
func NewClient(ctx context.Context, profile, region string) (*Client, error) {
	var optFns []func(*config.LoadOptions) error
	if profile != "" {
		optFns = append(optFns, config.WithSharedConfigProfile(profile))
	}
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, err
	}
	stsClient := sts.NewFromConfig(cfg)
	ident, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, err
	}
	return &Client{
		api:     &sdkAPI{client: cloudformation.NewFromConfig(cfg)},
		Account: common.AccountID(*ident.Account),
		Region:  cfg.Region,
	}, nil
}

// DescribeStacks returns every stack in the account/region.
func (c *Client) DescribeStacks(ctx context.Context) ([]Stack, error) {
	stacks := []Stack{}
	pager := c.api.DescribeStacksPager()
	err := forEachPage(ctx, pager.HasMorePages, func() error {
		output, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, s := range output.Stacks {
			if s.StackName == nil || s.StackId == nil {
				continue
			}
			stack := Stack{
				Name:   common.StackName(*s.StackName),
				ID:     *s.StackId,
				Status: string(s.StackStatus),
			}
			for _, t := range s.Tags {
				if t.Key == nil || t.Value == nil {
					continue
				}
				stack.Tags = append(stack.Tags, Tag{Key: *t.Key, Value: *t.Value})
			}
			for _, o := range s.Outputs {
				if o.OutputKey == nil {
					continue
				}
				out := Output{Key: *o.OutputKey}
				if o.OutputValue != nil {
					out.Value = *o.OutputValue
				}
				if o.ExportName != nil {
					out.ExportName = *o.ExportName
				}
				stack.Outputs = append(stack.Outputs, out)
			}
			stacks = append(stacks, stack)
		}
		return nil
	})
	return stacks, err
}

// ListExports returns every cross-stack export in the account/region.
// Importers are not populated here; see ListImports.
func (c *Client) ListExports(ctx context.Context) ([]Export, error) {
	exports := []Export{}
	pager := c.api.ListExportsPager()
	err := forEachPage(ctx, pager.HasMorePages, func() error {
		output, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range output.Exports {
			if e.Name == nil || e.ExportingStackId == nil {
				continue
			}
			exp := Export{
				Name:             common.ExportName(*e.Name),
				ExportingStackID: *e.ExportingStackId,
			}
			if e.Value != nil {
				exp.Value = *e.Value
			}
			exports = append(exports, exp)
		}
		return nil
	})
	return exports, err
}

// ListImports returns the names of the stacks importing the given export.
// An export nothing imports is an empty result, not an error.
func (c *Client) ListImports(ctx context.Context, export common.ExportName) ([]common.StackName, error) {
	importers := []common.StackName{}
	pager := c.api.ListImportsPager(export)
	err := forEachPage(ctx, pager.HasMorePages, func() error {
		output, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, name := range output.Imports {
			importers = append(importers, common.StackName(name))
		}
		return nil
	})
	if err != nil {
		if isNotImportedError(err) {
			return []common.StackName{}, nil
		}
		return nil, err
	}
	return importers, nil
}

// ListStackResources returns the resources of a single stack.
func (c *Client) ListStackResources(ctx context.Context, stack common.StackName) ([]StackResource, error) {
	resources := []StackResource{}
	pager := c.api.ListStackResourcesPager(stack)
	err := forEachPage(ctx, pager.HasMorePages, func() error {
		output, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, s := range output.StackResourceSummaries {
			if s.LogicalResourceId == nil || s.ResourceType == nil {
				continue
			}
			r := StackResource{
				LogicalID: *s.LogicalResourceId,
				Type:      common.ResourceType(*s.ResourceType),
				Status:    string(s.ResourceStatus),
			}
			if s.PhysicalResourceId != nil {
				r.PhysicalID = *s.PhysicalResourceId
			}
			resources = append(resources, r)
		}
		return nil
	})
	return resources, err
}

// forEachPage drives a pagination loop, retrying each page fetch with the
// adaptive retryer so a throttled call sleeps instead of failing.
func forEachPage(ctx context.Context, hasMore func() bool, fetch func() error) error {
	retryer := newRetryer()
	releaseInitial := retryer.GetInitialToken()
	defer func() {
		_ = releaseInitial(nil)
	}()

	for hasMore() {
		var err error
		for attempt := 1; attempt <= retryer.MaxAttempts(); attempt++ {
			err = fetch()
			if err == nil {
				break
			}

			sdkErr := toAPIError(err)
			if !retryer.IsErrorRetryable(sdkErr) || attempt >= retryer.MaxAttempts() {
				return err
			}

			releaseRetryToken, tokenErr := retryer.GetRetryToken(ctx, sdkErr)
			if tokenErr != nil {
				return err
			}

			delay, delayErr := retryer.RetryDelay(attempt, sdkErr)
			if delayErr != nil {
				_ = releaseRetryToken(sdkErr)
				return err
			}

			select {
			case <-ctx.Done():
				_ = releaseRetryToken(sdkErr)
				return ctx.Err()
			case <-time.After(delay):
				_ = releaseRetryToken(nil)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func isThrottlingError(err error) bool {
	if apiErr, ok := err.(smithy.APIError); ok {
		code := strings.ToLower(apiErr.ErrorCode())
		if strings.Contains(code, "throttling") {
			return true
		}
	}
	return false
}

// isNotImportedError matches the ValidationError CloudFormation returns for
// ListImports on an export no stack imports:
// `ValidationError: Export 'foo' is not imported by any stack.`
func isNotImportedError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "is not imported by any stack")
}

func toAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code := "GeneralServiceException"
	if isThrottlingError(err) {
		code = "ThrottlingException"
	}

	return &smithy.GenericAPIError{
		Code:    code,
		Message: err.Error(),
	}
}
