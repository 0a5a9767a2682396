package service

import (
	"context"

	"fieldops/internal/model"
	"fieldops/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Function-field mocks: tests set only the calls they care about. Unset
// finders report gorm.ErrRecordNotFound, unset writers succeed.

type mockWorkOrderRepo struct {
	createFn        func(ctx context.Context, order *model.WorkOrder) error
	updateFn        func(ctx context.Context, order *model.WorkOrder) error
	deleteFn        func(ctx context.Context, id uuid.UUID) error
	findByIDFn      func(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	findForUpdateFn func(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error)
	listFn          func(ctx context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, int64, error)

	updated []*model.WorkOrder
}

func (m *mockWorkOrderRepo) Create(ctx context.Context, order *model.WorkOrder) error {
	if m.createFn != nil {
		return m.createFn(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return nil
}

func (m *mockWorkOrderRepo) Update(ctx context.Context, order *model.WorkOrder) error {
	m.updated = append(m.updated, order)
	if m.updateFn != nil {
		return m.updateFn(ctx, order)
	}
	return nil
}

func (m *mockWorkOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockWorkOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.WorkOrder, error) {
	if m.findForUpdateFn != nil {
		return m.findForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkOrderRepo) List(ctx context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

type mockTaskRepo struct {
	createFn          func(ctx context.Context, task *model.Task) error
	updateFn          func(ctx context.Context, task *model.Task) error
	deleteFn          func(ctx context.Context, id uuid.UUID) error
	findByIDFn        func(ctx context.Context, id uuid.UUID) (*model.Task, error)
	listByWorkOrderFn func(ctx context.Context, workOrderID uuid.UUID) ([]model.Task, error)
	countIncompleteFn func(ctx context.Context, workOrderID uuid.UUID) (int64, error)
}

func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *model.Task) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]model.Task, error) {
	if m.listByWorkOrderFn != nil {
		return m.listByWorkOrderFn(ctx, workOrderID)
	}
	return nil, nil
}

func (m *mockTaskRepo) CountIncomplete(ctx context.Context, workOrderID uuid.UUID) (int64, error) {
	if m.countIncompleteFn != nil {
		return m.countIncompleteFn(ctx, workOrderID)
	}
	return 0, nil
}

type mockUserRepo struct {
	createFn        func(ctx context.Context, user *model.User) error
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*model.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	listFn          func(ctx context.Context, page, limit int, role string) ([]model.User, int64, error)
	updateFn        func(ctx context.Context, user *model.User) error
	deleteFn        func(ctx context.Context, id uuid.UUID) error

	deleted []uuid.UUID
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(ctx context.Context, page, limit int, role string) ([]model.User, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, page, limit, role)
	}
	return nil, 0, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockApprovalRepo struct {
	createFn        func(ctx context.Context, req *model.ApprovalRequest) error
	updateFn        func(ctx context.Context, req *model.ApprovalRequest) error
	findByIDFn      func(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	findForUpdateFn func(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error)
	listFn          func(ctx context.Context, filter repository.ApprovalFilter) ([]model.ApprovalRequest, int64, error)
	countPendingFn  func(ctx context.Context) (int64, error)
}

func (m *mockApprovalRepo) Create(ctx context.Context, req *model.ApprovalRequest) error {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	return nil
}

func (m *mockApprovalRepo) Update(ctx context.Context, req *model.ApprovalRequest) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, req)
	}
	return nil
}

func (m *mockApprovalRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApprovalRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.ApprovalRequest, error) {
	if m.findForUpdateFn != nil {
		return m.findForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApprovalRepo) List(ctx context.Context, filter repository.ApprovalFilter) ([]model.ApprovalRequest, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockApprovalRepo) CountPending(ctx context.Context) (int64, error) {
	if m.countPendingFn != nil {
		return m.countPendingFn(ctx)
	}
	return 0, nil
}

// mockAuditRepo records entries so tests can assert the trail was written.
type mockAuditRepo struct {
	entries []model.AuditLog
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *model.AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditRepo) List(ctx context.Context, page, limit int, action string) ([]model.AuditLog, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

// mockTxManager runs the callback on the bare context; there is no database
// behind these tests.
type mockTxManager struct{}

func (mockTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
