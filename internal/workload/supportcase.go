package workload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/idrcli/awsidr/internal/session"
)

// CaseFiler is the Support slice used for onboarding cases.
type CaseFiler interface {
	UploadAttachment(ctx context.Context, fileName string, data []byte) (string, error)
	CreateCase(ctx context.Context, subject, body, attachmentSetID string, ccEmails []string) (string, error)
	AddCommunication(ctx context.Context, caseID, body, attachmentSetID string) error
}

// CaseService files the onboarding support case with the workload state
// attached, and appends updates to it on later runs.
type CaseService struct {
	filer CaseFiler
	log   *slog.Logger
}

func NewCaseService(filer CaseFiler, log *slog.Logger) *CaseService {
	return &CaseService{filer: filer, log: log}
}

// File creates the onboarding case for a workload, or adds a communication
// to the existing one. The serialized session state rides along as an
// attachment either way, and the case ID is written back into the state.
func (c *CaseService) File(ctx context.Context, state *session.State) error {
	data, err := state.Serialize()
	if err != nil {
		return err
	}

	setID, err := c.filer.UploadAttachment(ctx, state.WorkloadName+"-onboarding.json", data)
	if err != nil {
		return fmt.Errorf("attach workload state: %w", err)
	}

	if state.SupportCaseID != "" {
		body := fmt.Sprintf(
			"Updated onboarding details for workload %q: %d resources, %d alarms. Current state attached.",
			state.WorkloadName, len(state.Resources), len(state.Alarms))
		if err := c.filer.AddCommunication(ctx, state.SupportCaseID, body, setID); err != nil {
			return err
		}
		c.log.Info("Updated onboarding case", "case_id", state.SupportCaseID, "workload", state.WorkloadName)
		return nil
	}

	subject := fmt.Sprintf("Incident Detection and Response onboarding: %s", state.WorkloadName)
	body := fmt.Sprintf(
		"Requesting IDR onboarding for workload %q in account %s.\n\nResources: %d\nAlarms: %d\nContacts: %d\n\nFull workload state attached.",
		state.WorkloadName, state.AccountID, len(state.Resources), len(state.Alarms), len(state.Contacts))

	var cc []string
	for _, contact := range state.Contacts {
		if contact.Email != "" {
			cc = append(cc, contact.Email)
		}
	}

	caseID, err := c.filer.CreateCase(ctx, subject, body, setID, cc)
	if err != nil {
		return err
	}
	state.SupportCaseID = caseID
	return nil
}
