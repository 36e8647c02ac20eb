package trading

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/aristath/paper-trader/internal/domain"
)

// utf8BOM makes spreadsheet software decode the CJK headers correctly
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var csvHeader = []string{
	"交易日期", "股票代號", "交易類型", "數量",
	"成交價格", "成交金額", "手續費", "交易稅", "淨金額",
}

// ExportTradesCSV renders fills as a UTF-8 CSV with a byte order mark
func ExportTradesCSV(trades []Trade) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, t := range trades {
		record := []string{
			t.ExecutedAt.Format("2006-01-02 15:04:05"),
			t.StockSymbol,
			sideLabel(t.Side),
			fmt.Sprintf("%d", t.Quantity),
			t.ExecutedPrice.String(),
			t.TotalAmount.String(),
			t.Commission.String(),
			t.TransactionTax.String(),
			t.NetAmount.String(),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func sideLabel(side domain.Side) string {
	if side.IsBuy() {
		return "買入"
	}
	return "賣出"
}
