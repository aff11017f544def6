package lakestore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// apiError is used for service errors the SDK has no typed error for.
func apiError(code, format string, args ...any) error {
	return &smithy.GenericAPIError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Fault:   smithy.FaultClient,
	}
}

func accessDenied() error {
	return apiError("AccessDenied", "Access Denied")
}

func noSuchBucket(bucket string) error {
	return &s3types.NoSuchBucket{Message: aws.String(fmt.Sprintf("The specified bucket does not exist: %s", bucket))}
}

func noSuchKey(key string) error {
	return &s3types.NoSuchKey{Message: aws.String(fmt.Sprintf("The specified key does not exist: %s", key))}
}

func bucketNotEmpty(bucket string) error {
	return apiError("BucketNotEmpty", "The bucket you tried to delete is not empty: %s", bucket)
}

func invalidArgument(format string, args ...any) error {
	return apiError("InvalidArgument", format, args...)
}

func glueAlreadyExists(format string, args ...any) error {
	return &gluetypes.AlreadyExistsException{Message: aws.String(fmt.Sprintf(format, args...))}
}

func glueNotFound(format string, args ...any) error {
	return &gluetypes.EntityNotFoundException{Message: aws.String(fmt.Sprintf(format, args...))}
}

func glueInvalidInput(format string, args ...any) error {
	return &gluetypes.InvalidInputException{Message: aws.String(fmt.Sprintf(format, args...))}
}

func athenaInvalidRequest(format string, args ...any) error {
	return &athenatypes.InvalidRequestException{Message: aws.String(fmt.Sprintf(format, args...))}
}
