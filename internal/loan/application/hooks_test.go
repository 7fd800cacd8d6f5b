package application

import (
	"context"
	"errors"
	"testing"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, name, contentType string, data []byte) error {
	return m.Called(ctx, name, contentType, data).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, summary models.ClientSummary) error {
	return m.Called(ctx, summary).Error(0)
}

type MockProcessStarter struct {
	mock.Mock
}

func (m *MockProcessStarter) StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error) {
	args := m.Called(ctx, processID, variables)
	return args.Get(0).(int64), args.Error(1)
}

func TestArchiveHook(t *testing.T) {
	store := new(MockObjectStore)
	store.On("Put", mock.Anything, "receipts/2026/10/17/Loan-Receipt-GFN-1760692200123.pdf", "application/pdf", []byte("%PDF")).
		Return(nil).Once()

	hook := NewArchiveHook(store, "receipts")
	require.NoError(t, hook.AfterCommit(context.Background(), Submitted{Record: createTestRecord(), InternalReceipt: []byte("%PDF")}))
	assert.Equal(t, "archive", hook.Name())
	store.AssertExpectations(t)
}

func TestArchiveHook_NothingToArchive(t *testing.T) {
	store := new(MockObjectStore)

	err := NewArchiveHook(store, "receipts").AfterCommit(context.Background(), Submitted{Record: createTestRecord()})
	assert.Error(t, err)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIndexHook(t *testing.T) {
	indexer := new(MockIndexer)
	indexer.On("Index", mock.Anything, mock.MatchedBy(func(s models.ClientSummary) bool {
		return s.ReceiptNumber == "GFN-1760692200123" && s.Name == "Amina Nakato"
	})).Return(errors.New("unavailable")).Once()

	err := NewIndexHook(indexer).AfterCommit(context.Background(), Submitted{Record: createTestRecord()})
	assert.EqualError(t, err, "unavailable")
	indexer.AssertExpectations(t)
}

func TestWorkflowHook(t *testing.T) {
	starter := new(MockProcessStarter)
	starter.On("StartProcess", mock.Anything, ProcessID, mock.MatchedBy(func(v map[string]interface{}) bool {
		return v["receiptNumber"] == "GFN-1760692200123" && v["interest"] == int64(10) && v["term"] == models.TermShort
	})).Return(int64(2251799813685249), nil).Once()

	hook := NewWorkflowHook(starter, logger.NewTestLogger(t))
	require.NoError(t, hook.AfterCommit(context.Background(), Submitted{Record: createTestRecord()}))
	starter.AssertExpectations(t)
}

func TestWorkflowHook_SkipsPhoneIn(t *testing.T) {
	starter := new(MockProcessStarter)

	hook := NewWorkflowHook(starter, logger.NewTestLogger(t))
	err := hook.AfterCommit(context.Background(), Submitted{Record: createTestRecord(), Origin: OriginPhoneIn})

	assert.NoError(t, err)
	starter.AssertNotCalled(t, "StartProcess", mock.Anything, mock.Anything, mock.Anything)
}
