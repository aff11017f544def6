package lakestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// GetCallerIdentity reports the account the store acts as.
func (s *Store) GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return &sts.GetCallerIdentityOutput{
		Account: aws.String(s.account),
		Arn:     aws.String(fmt.Sprintf("arn:aws:iam::%s:user/lakestore", s.account)),
		UserId:  aws.String("LAKESTORE" + s.account),
	}, nil
}
