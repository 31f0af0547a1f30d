package sqlstore

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
)

// money 是 balance / amount 欄位的型別
//
// mysql / postgres 存 DECIMAL(20,4)，直接綁 decimal；
// sqlite 沒有精確的小數型別 (NUMERIC 會變成浮點數)，改存以 0.0001 為單位的 INTEGER，
// 加減與比較都在整數上完成。
type money struct {
	decimal.Decimal
}

func newMoney(d decimal.Decimal) money {
	return money{Decimal: d}
}

// GormValue 依方言決定綁定的值，Create、Where 參數與 gorm.Expr 都會經過這裡
func (m money) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == database.DriverSQLite {
		return clause.Expr{SQL: "?", Vars: []any{m.Shift(domain.MaxAmountScale).IntPart()}}
	}
	return clause.Expr{SQL: "?", Vars: []any{m.Decimal}}
}

// Scan sqlite 的 INTEGER 欄位讀出來是 int64 (最小單位)，其他驅動回傳十進位字串
func (m *money) Scan(src any) error {
	if units, ok := src.(int64); ok {
		m.Decimal = decimal.New(units, -domain.MaxAmountScale)
		return nil
	}
	return m.Decimal.Scan(src)
}
