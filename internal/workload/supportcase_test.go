package workload

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idrcli/awsidr/internal/session"
)

type fakeFiler struct {
	uploadedName string
	uploadedData []byte
	createdCC    []string
	caseID       string
	updates      int
}

func (f *fakeFiler) UploadAttachment(ctx context.Context, fileName string, data []byte) (string, error) {
	f.uploadedName = fileName
	f.uploadedData = data
	return "set-1", nil
}

func (f *fakeFiler) CreateCase(ctx context.Context, subject, body, attachmentSetID string, ccEmails []string) (string, error) {
	f.createdCC = ccEmails
	f.caseID = "case-42"
	return f.caseID, nil
}

func (f *fakeFiler) AddCommunication(ctx context.Context, caseID, body, attachmentSetID string) error {
	f.updates++
	return nil
}

func TestFileCreatesCaseWithStateAttached(t *testing.T) {
	filer := &fakeFiler{}
	svc := NewCaseService(filer, discardLogger())

	state := &session.State{
		WorkloadName: "payments",
		AccountID:    "123456789012",
		Contacts: []session.Contact{
			{Name: "On-call", Email: "oncall@example.com"},
			{Name: "No email"},
		},
	}
	require.NoError(t, svc.File(context.Background(), state))

	assert.Equal(t, "case-42", state.SupportCaseID)
	assert.Equal(t, "payments-onboarding.json", filer.uploadedName)
	assert.Equal(t, []string{"oncall@example.com"}, filer.createdCC)
	assert.Equal(t, 0, filer.updates)

	var attached session.State
	require.NoError(t, json.Unmarshal(filer.uploadedData, &attached))
	assert.Equal(t, "payments", attached.WorkloadName)
}

func TestFileUpdatesExistingCase(t *testing.T) {
	filer := &fakeFiler{}
	svc := NewCaseService(filer, discardLogger())

	state := &session.State{WorkloadName: "payments", SupportCaseID: "case-7"}
	require.NoError(t, svc.File(context.Background(), state))

	assert.Equal(t, "case-7", state.SupportCaseID)
	assert.Equal(t, 1, filer.updates)
}
