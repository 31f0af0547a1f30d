package sqlstore

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// gorm 的 TranslateError 只認得各方言預設驅動的錯誤型別；
// postgres 走 lib/pq、sqlite 走 modernc，所以這裡再補上驅動層的判斷。

// 各驅動的錯誤代碼 / 訊息
const (
	mysqlDuplicateEntry    = 1062
	mysqlNoReferencedRow   = 1452
	mysqlCheckConstraint   = 3819
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
	sqliteForeignKeyFailed = "FOREIGN KEY constraint failed"
	sqliteUniqueFailed     = "UNIQUE constraint failed"
	sqliteCheckFailed      = "CHECK constraint failed"
)

func isForeignKeyViolation(err error) bool {
	return matchDBError(err, gorm.ErrForeignKeyViolated, mysqlNoReferencedRow, pqForeignKeyViolation, sqliteForeignKeyFailed)
}

func isDuplicateKey(err error) bool {
	return matchDBError(err, gorm.ErrDuplicatedKey, mysqlDuplicateEntry, pqUniqueViolation, sqliteUniqueFailed)
}

func isCheckViolation(err error) bool {
	return matchDBError(err, gorm.ErrCheckConstraintViolated, mysqlCheckConstraint, pqCheckViolation, sqliteCheckFailed)
}

func matchDBError(err error, translated error, mysqlNumber uint16, pqCode pq.ErrorCode, sqliteMsg string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, translated) {
		return true
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlNumber
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqCode
	}
	return strings.Contains(err.Error(), sqliteMsg)
}
