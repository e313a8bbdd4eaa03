package awsapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/support"
	supporttypes "github.com/aws/aws-sdk-go-v2/service/support/types"
)

// SupportAPI is the slice of the Support API used for IDR case filing.
// The Support API is only reachable from us-east-1 and requires a
// Business-or-higher support plan.
type SupportAPI interface {
	CreateCase(ctx context.Context, params *support.CreateCaseInput, optFns ...func(*support.Options)) (*support.CreateCaseOutput, error)
	AddAttachmentsToSet(ctx context.Context, params *support.AddAttachmentsToSetInput, optFns ...func(*support.Options)) (*support.AddAttachmentsToSetOutput, error)
	AddCommunicationToCase(ctx context.Context, params *support.AddCommunicationToCaseInput, optFns ...func(*support.Options)) (*support.AddCommunicationToCaseOutput, error)
}

// SupportAccessor files and amends support cases.
type SupportAccessor struct {
	api SupportAPI
	log *slog.Logger
}

func NewSupportAccessor(sess *Session, log *slog.Logger) *SupportAccessor {
	return &SupportAccessor{
		api: support.NewFromConfig(sess.ConfigForRegion(USEast1)),
		log: log,
	}
}

// NewSupportAccessorWithAPI is the injection point for tests.
func NewSupportAccessorWithAPI(api SupportAPI, log *slog.Logger) *SupportAccessor {
	return &SupportAccessor{api: api, log: log}
}

// UploadAttachment stages a file into a fresh attachment set and returns the
// set ID for CreateCase.
func (a *SupportAccessor) UploadAttachment(ctx context.Context, fileName string, data []byte) (string, error) {
	out, err := a.api.AddAttachmentsToSet(ctx, &support.AddAttachmentsToSetInput{
		Attachments: []supporttypes.Attachment{
			{FileName: aws.String(fileName), Data: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("add attachments to set: %w", err)
	}
	return aws.ToString(out.AttachmentSetId), nil
}

// CreateCase opens a support case and returns its ID.
func (a *SupportAccessor) CreateCase(ctx context.Context, subject, body, attachmentSetID string, ccEmails []string) (string, error) {
	input := &support.CreateCaseInput{
		Subject:           aws.String(subject),
		CommunicationBody: aws.String(body),
		IssueType:         aws.String("technical"),
		ServiceCode:       aws.String("incident-detection-response"),
		CategoryCode:      aws.String("onboarding"),
		SeverityCode:      aws.String("low"),
		CcEmailAddresses:  ccEmails,
	}
	if attachmentSetID != "" {
		input.AttachmentSetId = aws.String(attachmentSetID)
	}

	out, err := a.api.CreateCase(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create support case: %w", err)
	}

	caseID := aws.ToString(out.CaseId)
	a.log.Info("Created support case", "case_id", caseID)
	return caseID, nil
}

// AddCommunication appends a message (and optional attachment set) to an
// existing case.
func (a *SupportAccessor) AddCommunication(ctx context.Context, caseID, body, attachmentSetID string) error {
	input := &support.AddCommunicationToCaseInput{
		CaseId:            aws.String(caseID),
		CommunicationBody: aws.String(body),
	}
	if attachmentSetID != "" {
		input.AttachmentSetId = aws.String(attachmentSetID)
	}
	if _, err := a.api.AddCommunicationToCase(ctx, input); err != nil {
		return fmt.Errorf("add communication to case %s: %w", caseID, err)
	}
	return nil
}
