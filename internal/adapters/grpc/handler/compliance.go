package handler

import (
	"context"
	"strings"

	"github.com/ogurasousui/shaho-compliance/internal/adapters/grpc/compliancev1"
	"github.com/ogurasousui/shaho-compliance/internal/core/changehistory"
	"github.com/ogurasousui/shaho-compliance/internal/core/eligibility"
	"github.com/ogurasousui/shaho-compliance/internal/core/employee"
	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"github.com/ogurasousui/shaho-compliance/internal/core/workcategory"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ComplianceHandler は ComplianceService の gRPC 実装です。
type ComplianceHandler struct {
	employees employee.UseCase
	history   changehistory.UseCase
	premiums  premium.UseCase
	logger    *zap.Logger
}

var _ compliancev1.ComplianceServiceServer = (*ComplianceHandler)(nil)

// NewComplianceHandler は ComplianceHandler を生成します。
func NewComplianceHandler(employees employee.UseCase, history changehistory.UseCase, premiums premium.UseCase, logger *zap.Logger) *ComplianceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceHandler{
		employees: employees,
		history:   history,
		premiums:  premiums,
		logger:    logger,
	}
}

// ClassifyWorkCategory は従業員属性から勤務区分を判定します。
func (h *ComplianceHandler) ClassifyWorkCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in classifyWorkCategoryRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	category := workcategory.Classify(workcategory.Attributes{
		WeeklyWorkHours:          workcategory.WeeklyHours(in.WeeklyWorkHoursCategory),
		MonthlyWage:              in.MonthlyWage,
		ExpectedEmploymentMonths: in.ExpectedEmploymentMonths,
		IsStudent:                in.IsStudent,
	})
	return encodeResponse(toWorkCategoryResponse(category))
}

// CheckEligibility は基準日時点の保険種別ごとの加入可否を判定します。
func (h *ComplianceHandler) CheckEligibility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in checkEligibilityRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	birth, err := parseDate("birthDate", in.BirthDate)
	if err != nil {
		return nil, err
	}
	retire, err := parseOptionalDate("retireDate", in.RetireDate)
	if err != nil {
		return nil, err
	}
	ref, err := parseDate("referenceDate", in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	result := eligibility.Check(
		eligibility.Subject{BirthDate: birth, RetireDate: retire},
		workcategory.Category(strings.TrimSpace(in.WorkCategory)),
		ref,
	)
	return encodeResponse(result)
}

// CreateEmployee は従業員を登録します。
func (h *ComplianceHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in createEmployeeRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	profile, err := in.toDomain()
	if err != nil {
		return nil, err
	}

	created, err := h.employees.CreateEmployee(ctx, employee.CreateEmployeeInput{Profile: profile})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(struct {
		Employee employeeDTO `json:"employee"`
	}{toEmployeeDTO(created)})
}

// UpdateEmployee は従業員情報を置き換え、検知された届出対象の変更を返します。
func (h *ComplianceHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateEmployeeRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	profile, err := in.toDomain()
	if err != nil {
		return nil, err
	}
	effective, err := parseOptionalDate("effectiveDate", in.EffectiveDate)
	if err != nil {
		return nil, err
	}

	result, err := h.employees.UpdateEmployee(ctx, employee.UpdateEmployeeInput{
		ID:            in.ID,
		Profile:       profile,
		EffectiveDate: effective,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(struct {
		Employee employeeDTO      `json:"employee"`
		Changes  []changeEventDTO `json:"changes"`
	}{toEmployeeDTO(result.Employee), toChangesResponse(result.Changes).Changes})
}

// GetEmployee は従業員を取得します。
func (h *ComplianceHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in employeeIDRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	found, err := h.employees.GetEmployee(ctx, employee.GetEmployeeInput{ID: in.ID})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(struct {
		Employee employeeDTO `json:"employee"`
	}{toEmployeeDTO(found)})
}

// ListEmployees は従業員の一覧を取得します。
func (h *ComplianceHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listEmployeesRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	result, err := h.employees.ListEmployees(ctx, employee.ListEmployeesInput{
		OfficeNumber: in.OfficeNumber,
		PageSize:     in.PageSize,
		PageToken:    in.PageToken,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	employees := make([]employeeDTO, 0, len(result.Employees))
	for _, emp := range result.Employees {
		employees = append(employees, toEmployeeDTO(emp))
	}
	return encodeResponse(struct {
		Employees     []employeeDTO `json:"employees"`
		NextPageToken string        `json:"nextPageToken"`
	}{employees, result.NextPageToken})
}

// DeleteEmployee は従業員と紐づく未徴収保険料レコードを削除します。
func (h *ComplianceHandler) DeleteEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in employeeIDRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	if err := h.employees.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: in.ID}); err != nil {
		return nil, toStatusError(err)
	}
	return &structpb.Struct{}, nil
}

// EvaluateEmployee は保存済みの従業員について基準日時点の判定結果を返します。
func (h *ComplianceHandler) EvaluateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in evaluateEmployeeRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	ref, err := parseDate("referenceDate", in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	eval, err := h.employees.EvaluateEmployee(ctx, employee.EvaluateEmployeeInput{ID: in.ID, ReferenceDate: ref})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(evaluationResponse{
		Employee:      toEmployeeDTO(eval.Employee),
		ReferenceDate: formatDate(eval.ReferenceDate),
		WorkCategory:  string(eval.WorkCategory),
		Eligibility:   eval.Eligibility,
		OnLeave:       eval.OnLeave,
		PremiumExempt: eval.PremiumExempt,
	})
}

// DetectChanges は新旧スナップショットを比較し、保存せずに変更内容を返します。
func (h *ComplianceHandler) DetectChanges(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in detectChangesRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	prev, err := in.Previous.toDomain("previous")
	if err != nil {
		return nil, err
	}
	next, err := in.Current.toDomain("current")
	if err != nil {
		return nil, err
	}
	effective, err := parseDate("effectiveDate", in.EffectiveDate)
	if err != nil {
		return nil, err
	}

	return encodeResponse(toChangesResponse(changehistory.Detect(prev, next, effective)))
}

// ListChangeHistory は従業員の変更履歴を新しい順に返します。
func (h *ComplianceHandler) ListChangeHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listChangeHistoryRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	var changeType *changehistory.ChangeType
	if in.ChangeType != nil {
		ct := changehistory.ChangeType(strings.TrimSpace(*in.ChangeType))
		changeType = &ct
	}

	events, err := h.history.List(ctx, changehistory.ListInput{
		EmployeeID: in.EmployeeID,
		ChangeType: changeType,
		PageSize:   in.PageSize,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(toChangesResponse(events))
}

// ReconcilePremium は給与計算一回分の集計値から未徴収アラートを作成・更新・解消します。
func (h *ComplianceHandler) ReconcilePremium(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in reconcilePremiumRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	outcome, err := h.premiums.Reconcile(ctx, premium.ReconcileInput{
		EmployeeID:           in.EmployeeID,
		Year:                 in.Year,
		Month:                in.Month,
		TotalSalary:          in.TotalSalary,
		EmployeeBornePremium: in.EmployeeBornePremium,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(struct {
		Outcome string `json:"outcome"`
	}{string(outcome)})
}

// ListUncollectedPremiums は未徴収保険料レコードを絞り込んで返します。
func (h *ComplianceHandler) ListUncollectedPremiums(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listUncollectedPremiumsRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	records, err := h.premiums.List(ctx, premium.ListInput{
		EmployeeID: in.EmployeeID,
		Year:       in.Year,
		Resolved:   in.Resolved,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(toPremiumsResponse(records))
}

// MarkPremiumsResolved は指定レコードを手動で解消済みにします。
func (h *ComplianceHandler) MarkPremiumsResolved(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in markPremiumsResolvedRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}

	n, err := h.premiums.MarkResolved(ctx, in.IDs)
	if err != nil {
		return nil, toStatusError(err)
	}
	return encodeResponse(struct {
		Updated int64 `json:"updated"`
	}{n})
}

// WatchUnresolvedPremiums は未解消レコードの全量を初回と変更のたびに送信します。
func (h *ComplianceHandler) WatchUnresolvedPremiums(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	var in watchUnresolvedPremiumsRequest
	if err := decodeRequest(req, &in); err != nil {
		return err
	}

	ctx := stream.Context()
	updates, err := h.premiums.ObserveUnresolved(ctx, in.Year)
	if err != nil {
		return toStatusError(err)
	}

	for update := range updates {
		if update.Err != nil {
			return toStatusError(update.Err)
		}
		msg, err := encodeResponse(toPremiumsResponse(update.Records))
		if err != nil {
			return err
		}
		if err := stream.Send(msg); err != nil {
			h.logger.Debug("unresolved premium watcher disconnected", zap.Error(err))
			return err
		}
	}

	return toStatusError(ctx.Err())
}
