package export

import (
	"context"
	"fmt"
	"time"

	"github.com/freshkit/freshkit-backend/internal/bags"
	"github.com/freshkit/freshkit-backend/internal/drops"
	"github.com/freshkit/freshkit-backend/internal/members"
	"github.com/freshkit/freshkit-backend/pkg/airtable"
	"github.com/freshkit/freshkit-backend/pkg/enums"
	pkgerrors "github.com/freshkit/freshkit-backend/pkg/errors"
	"github.com/freshkit/freshkit-backend/pkg/logger"
)

// ContentType is the MIME type of every generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const cellTimeLayout = "2006-01-02 15:04"

// Service renders ops tables as Excel workbooks.
type Service interface {
	Export(ctx context.Context, kind enums.ExportKind) (*File, error)
}

// File is a generated workbook ready to stream.
type File struct {
	Name string
	Data []byte
}

type ServiceParams struct {
	Drops    drops.Repository
	Bags     bags.Repository
	Members  members.Repository
	Logger   *logger.Logger
	Location *time.Location
}

type service struct {
	drops   drops.Repository
	bags    bags.Repository
	members members.Repository
	logg    *logger.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Drops == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "drops repository required")
	}
	if params.Bags == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bags repository required")
	}
	if params.Members == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "members repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		drops:   params.Drops,
		bags:    params.Bags,
		members: params.Members,
		logg:    params.Logger,
		loc:     loc,
		now:     time.Now,
	}, nil
}

func (s *service) Export(ctx context.Context, kind enums.ExportKind) (*File, error) {
	var (
		sheet Sheet
		err   error
	)
	switch kind {
	case enums.ExportKindDrops:
		sheet, err = s.dropSheet(ctx)
	case enums.ExportKindBags:
		sheet, err = s.bagSheet(ctx)
	case enums.ExportKindMembers:
		sheet, err = s.memberSheet(ctx)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown export").
			WithDetails(map[string]any{"kind": kind})
	}
	if err != nil {
		return nil, airtable.MapError(err, string(kind))
	}

	data, err := Build(sheet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build workbook")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"kind": string(kind),
		"rows": len(sheet.Rows),
	})
	s.logg.Info(ctx, "export.generated")
	return &File{
		Name: fmt.Sprintf("freshkit-%s-%s.xlsx", kind, s.now().In(s.loc).Format("2006-01-02")),
		Data: data,
	}, nil
}

func (s *service) dropSheet(ctx context.Context) (Sheet, error) {
	list, err := s.drops.List(ctx, drops.ListFilter{})
	if err != nil {
		return Sheet{}, err
	}
	rows := make([][]any, 0, len(list))
	for _, d := range list {
		rows = append(rows, []any{
			d.BagNumber,
			string(d.Status),
			d.MemberName,
			d.Gym,
			s.cellTime(d.DropDate),
			s.cellTime(d.ReadyAt),
			s.cellTime(d.PickupDeadline),
			s.cellTime(d.CollectedAt),
			d.LaundryPartner,
			d.Notes,
		})
	}
	return Sheet{
		Name: "Drops",
		Headers: []string{
			"Bag Number", "Status", "Member", "Gym", "Drop Date",
			"Ready At", "Pickup Deadline", "Collected At", "Laundry Partner", "Notes",
		},
		Widths: []float64{12, 12, 24, 10, 18, 18, 18, 18, 18, 40},
		Rows:   rows,
	}, nil
}

func (s *service) bagSheet(ctx context.Context) (Sheet, error) {
	list, err := s.bags.List(ctx, bags.ListFilter{})
	if err != nil {
		return Sheet{}, err
	}
	rows := make([][]any, 0, len(list))
	for _, b := range list {
		rows = append(rows, []any{
			b.BagNumber,
			string(b.Status),
			b.MemberName,
			string(b.Condition),
			s.cellTime(b.IssuedDate),
			s.cellTime(b.ReturnedDate),
			b.Notes,
		})
	}
	return Sheet{
		Name:    "Bags",
		Headers: []string{"Bag Number", "Status", "Member", "Condition", "Issued Date", "Returned Date", "Notes"},
		Widths:  []float64{12, 12, 24, 12, 18, 18, 40},
		Rows:    rows,
	}, nil
}

func (s *service) memberSheet(ctx context.Context) (Sheet, error) {
	list, err := s.members.List(ctx, members.ListFilter{})
	if err != nil {
		return Sheet{}, err
	}
	rows := make([][]any, 0, len(list))
	for _, m := range list {
		rows = append(rows, []any{
			m.Name,
			m.Phone,
			m.Email,
			m.Gym,
			m.Tier,
			string(m.Status),
			m.DropsRemaining,
			s.cellTime(m.Joined),
			s.cellTime(m.CancelsAt),
			m.StripeCustomerID,
		})
	}
	return Sheet{
		Name: "Members",
		Headers: []string{
			"Name", "Phone", "Email", "Gym", "Tier",
			"Status", "Drops Remaining", "Joined", "Cancels At", "Stripe Customer",
		},
		Widths: []float64{24, 16, 28, 10, 12, 12, 16, 18, 18, 22},
		Rows:   rows,
	}, nil
}

func (s *service) cellTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(s.loc).Format(cellTimeLayout)
}
