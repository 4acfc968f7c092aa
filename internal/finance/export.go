// internal/finance/export.go
package finance

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	shuSheet     = "SHU"
	summarySheet = "Summary"
	rupiahFormat = `"Rp "#,##0`
)

var shuHeader = []any{
	"Member ID",
	"Full Name",
	"Savings SHU",
	"Transaction SHU",
	"Equal SHU",
	"Membership Bonus",
	"Membership Points",
	"Total SHU",
}

// WriteSHUWorkbook writes a distribution as an xlsx report with one row per
// member and a summary sheet.
func WriteSHUWorkbook(w io.Writer, res *SHUResult) error {
	if res == nil {
		return fmt.Errorf("write SHU workbook: nil result")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", shuSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFmt := rupiahFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := f.SetSheetRow(shuSheet, "A1", &shuHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(shuSheet, "A1", "H1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, share := range res.Breakdown {
		row := []any{
			share.MemberID,
			share.FullName,
			share.SavingsSHU,
			share.TransactionSHU,
			share.EqualSHU,
			share.MembershipBonus,
			share.MembershipPoints,
			share.TotalSHU,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(shuSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if n := len(res.Breakdown); n > 0 {
		last := n + 1
		for _, col := range []string{"C", "D", "E", "F", "H"} {
			if err := f.SetCellStyle(shuSheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, last), moneyStyle); err != nil {
				return fmt.Errorf("failed to style column %s: %w", col, err)
			}
		}
	}
	if err := f.SetColWidth(shuSheet, "A", "B", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(shuSheet, "C", "H", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	s := res.Summary
	summary := [][]any{
		{"Total Members", s.TotalMembers},
		{"Total SHU", s.TotalSHU},
		{"Savings Pool", s.SavingsPool},
		{"Transaction Pool", s.TransactionPool},
		{"Equal Pool", s.EqualPool},
		{"Membership Bonus Pool", s.MembershipBonusPool},
		{"Distributed", s.Distributed},
		{"Undistributed", s.Undistributed},
		{"Average SHU per Member", s.AverageSHUPerMember},
	}
	for i, row := range summary {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "B2", fmt.Sprintf("B%d", len(summary)), moneyStyle); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 26); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
