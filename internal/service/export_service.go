package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/dto"
	"github.com/noah-isme/gymslot-api/internal/models"
	"github.com/noah-isme/gymslot-api/pkg/export"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
)

// Export formats accepted by the roster export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var rosterHeaders = []string{"Time Slot", "Name", "Email", "Student ID", "Booked At"}

type rosterSource interface {
	AdminListBookingsForDate(ctx context.Context, rawDate string) (*dto.DayRoster, error)
	AdminListBookingsForSlot(ctx context.Context, slotID string) (*models.SlotRoster, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered document ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders booking rosters as downloadable documents.
type ExportService struct {
	rosters   rosterSource
	renderers map[string]datasetRenderer
	location  *time.Location
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(rosters rosterSource, location *time.Location, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	return &ExportService{
		rosters: rosters,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		location: location,
		logger:   logger,
	}
}

// ExportDayRoster renders every booked user of a date.
func (s *ExportService) ExportDayRoster(ctx context.Context, rawDate, format string) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	roster, err := s.rosters.AdminListBookingsForDate(ctx, rawDate)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:    "Booked members",
		Subtitle: roster.Date.Format("Monday, 2 January 2006"),
		Headers:  rosterHeaders,
	}
	for _, slot := range roster.Slots {
		data.Rows = append(data.Rows, s.rows(slot.Slot.TimeSlot, slot.Bookings)...)
	}
	return s.render(renderer, data, "roster-"+roster.Date.String())
}

// ExportSlotRoster renders the booked users of one slot.
func (s *ExportService) ExportSlotRoster(ctx context.Context, slotID, format string) (*ExportFile, error) {
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	roster, err := s.rosters.AdminListBookingsForSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{
		Title:    "Booked members",
		Subtitle: fmt.Sprintf("%s, %s (%d/%d)", roster.Slot.Date.Format("Monday, 2 January 2006"), roster.Slot.TimeSlot, len(roster.Bookings), roster.Slot.Capacity),
		Headers:  rosterHeaders,
		Rows:     s.rows(roster.Slot.TimeSlot, roster.Bookings),
	}
	return s.render(renderer, data, "roster-"+roster.Slot.Date.String()+"-"+slugTimeSlot(roster.Slot.TimeSlot))
}

func (s *ExportService) renderer(format string) (datasetRenderer, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return renderer, nil
}

func (s *ExportService) rows(timeSlot string, bookings []models.Booking) []map[string]string {
	rows := make([]map[string]string, 0, len(bookings))
	for _, b := range bookings {
		row := map[string]string{
			"Time Slot": timeSlot,
			"Booked At": b.CreatedAt.In(s.location).Format("2006-01-02 15:04"),
		}
		if b.User != nil {
			row["Name"] = b.User.Name
			row["Email"] = b.User.Email
			if b.User.StudentID != nil {
				row["Student ID"] = *b.User.StudentID
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *ExportService) render(renderer datasetRenderer, data export.Dataset, basename string) (*ExportFile, error) {
	payload, err := renderer.Render(data)
	if err != nil {
		s.logger.Error("render roster export", zap.String("file", basename), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    basename + "." + renderer.Extension(),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

// slugTimeSlot turns "5:00 - 6:00 AM" into "0500-0600am".
func slugTimeSlot(label string) string {
	var b strings.Builder
	for _, part := range strings.Fields(strings.ToLower(label)) {
		switch {
		case part == "-":
			b.WriteByte('-')
		case strings.Contains(part, ":"):
			digits := strings.ReplaceAll(part, ":", "")
			if len(digits) == 3 {
				digits = "0" + digits
			}
			b.WriteString(digits)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}
