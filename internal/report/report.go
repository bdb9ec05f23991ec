// Package report exports stored account state to spreadsheets.
package report

import (
	"strconv"
	"time"

	"steam-trader/internal/models"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Accounts"

var header = []interface{}{
	"Username", "SteamID", "Last Code", "Trade Status", "Balance", "Has API Key", "Last Login", "Updated",
}

// BuildAccountWorkbook writes one row per account below a bold header row.
func BuildAccountWorkbook(accounts []models.SteamAccount) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, acc := range accounts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := accountRow(acc)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "H", 20); err != nil {
		return nil, err
	}
	return f, nil
}

func accountRow(acc models.SteamAccount) []interface{} {
	balance := ""
	if acc.Balance != nil {
		balance = strconv.FormatFloat(*acc.Balance, 'f', 2, 64)
	}
	hasKey := "no"
	if acc.HasAPIKey {
		hasKey = "yes"
	}
	return []interface{}{
		acc.Username,
		acc.SteamID,
		acc.LastCode,
		acc.TradeCode,
		balance,
		hasKey,
		formatTime(acc.LastLoginAt),
		formatTime(&acc.UpdatedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
