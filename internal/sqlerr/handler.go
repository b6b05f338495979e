package sqlerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/deppfellow/recordkeeper/internal/errs"
	"github.com/deppfellow/recordkeeper/internal/sqlexec"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"modernc.org/sqlite"
)

var (
	// "NOT NULL constraint failed: records.amount"
	sqliteColumnPattern = regexp.MustCompile(`constraint failed: ([A-Za-z_]\w*)\.([A-Za-z_]\w*)`)

	// "... column 'amount', table 'records.dbo.records' ..."
	mssqlColumnPattern = regexp.MustCompile(`column '([^']+)'`)
	mssqlTablePattern  = regexp.MustCompile(`table '?"?([^'"]+)["']`)

	uniqueKeyPattern  = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)
	foreignKeyPattern = regexp.MustCompile(`^[^_]+_(.+)_fkey$`)
)

// ErrCode reports the Code of err, or Other when it is not a recognised
// database error.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	if sqlErr := Convert(err); sqlErr != nil {
		return sqlErr.Code
	}
	return Other
}

// Convert normalizes a driver error from any supported backend. It returns
// nil when err carries no database error.
func Convert(err error) *Error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return ConvertPgError(pgerr)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return convertSQLiteError(liteErr)
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return convertMSSQLError(msErr)
	}

	var dbErr *sqlexec.DatabaseError
	if errors.As(err, &dbErr) && dbErr.SQLState != "" {
		return &Error{
			Code:         MapCode(dbErr.SQLState),
			Severity:     SeverityError,
			DatabaseCode: dbErr.SQLState,
			Message:      dbErr.Message,
			driverErr:    dbErr,
		}
	}

	return nil
}

// ConvertPgError converts a raw PostgreSQL error.
func ConvertPgError(src *pgconn.PgError) *Error {
	sqlErr := &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}

	if sqlErr.ColumnName == "" && sqlErr.Code == ForeignKeyViolation {
		sqlErr.ColumnName = extractColumnForForeignKey(sqlErr.ConstraintName)
	}
	return sqlErr
}

// convertSQLiteError maps SQLite extended result codes. Builds without
// extended codes report the base SQLITE_CONSTRAINT (19), in which case the
// message decides.
func convertSQLiteError(src *sqlite.Error) *Error {
	msg := src.Error()
	sqlErr := &Error{
		Code:         Other,
		Severity:     SeverityError,
		DatabaseCode: strconv.Itoa(src.Code()),
		Message:      msg,
		driverErr:    src,
	}

	switch src.Code() {
	case 787:
		sqlErr.Code = ForeignKeyViolation
	case 2067, 1555:
		sqlErr.Code = UniqueViolation
	case 1299:
		sqlErr.Code = NotNullViolation
	case 275:
		sqlErr.Code = CheckViolation
	case 20:
		sqlErr.Code = DataException
	case 5, 6, 261, 517:
		sqlErr.Code = ConnectionException
	default:
		sqlErr.Code = codeFromMessage(msg)
	}

	if m := sqliteColumnPattern.FindStringSubmatch(msg); m != nil {
		sqlErr.TableName = m[1]
		sqlErr.ColumnName = m[2]
	}
	return sqlErr
}

func convertMSSQLError(src mssql.Error) *Error {
	sqlErr := &Error{
		Code:         Other,
		Severity:     SeverityError,
		DatabaseCode: strconv.Itoa(int(src.Number)),
		Message:      src.Message,
		driverErr:    src,
	}

	switch src.Number {
	case 547:
		sqlErr.Code = codeFromMessage(src.Message)
	case 2627, 2601:
		sqlErr.Code = UniqueViolation
	case 515:
		sqlErr.Code = NotNullViolation
	case 241, 242, 245, 8114, 8115, 295:
		sqlErr.Code = DataException
	case 102, 156:
		sqlErr.Code = SyntaxError
	case 207, 208:
		sqlErr.Code = UndefinedObject
	}

	if m := mssqlColumnPattern.FindStringSubmatch(src.Message); m != nil {
		sqlErr.ColumnName = m[1]
	}
	if m := mssqlTablePattern.FindStringSubmatch(src.Message); m != nil {
		parts := strings.Split(m[1], ".")
		sqlErr.TableName = parts[len(parts)-1]
	}
	return sqlErr
}

func codeFromMessage(msg string) Code {
	upper := strings.ToUpper(msg)
	switch {
	case strings.Contains(upper, "FOREIGN KEY"):
		return ForeignKeyViolation
	case strings.Contains(upper, "UNIQUE"), strings.Contains(upper, "PRIMARY KEY"):
		return UniqueViolation
	case strings.Contains(upper, "NOT NULL"):
		return NotNullViolation
	case strings.Contains(upper, "CHECK"):
		return CheckViolation
	case strings.Contains(upper, "SYNTAX ERROR"):
		return SyntaxError
	case strings.Contains(upper, "NO SUCH TABLE"), strings.Contains(upper, "NO SUCH COLUMN"):
		return UndefinedObject
	default:
		return Other
	}
}

// generateErrorCode builds a machine-friendly code such as
// TEAM_NOT_FOUND or RECORD_REQUIRED.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(tableName)
	if strings.HasSuffix(domain, "S") && len(domain) > 1 {
		domain = domain[:len(domain)-1]
	}

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation, DataException:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// formatUserFriendlyMessage produces the client-facing message.
func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entityName)

	case UniqueViolation:
		return fmt.Sprintf("A %s with this identifier already exists", entityName)

	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)

	case CheckViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"

	case DataException:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value has an invalid format", fieldName)
		}
		return "One or more values have an invalid format"

	default:
		return "An error occurred while processing your request"
	}
}

// getEntityName prefers a "<entity>_id" column, then the singular table
// name, then "record".
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	if tableName != "" {
		entity := tableName
		if strings.HasSuffix(entity, "s") && len(entity) > 1 {
			entity = entity[:len(entity)-1]
		}
		return humanizeText(entity)
	}

	return "record"
}

// humanizeText turns "transaction_date" into "Transaction Date".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// extractColumnForUniqueViolation reads the column out of constraint names
// shaped "unique_<table>_<column>" or "<table>_<column>_key".
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := uniqueKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// extractColumnForForeignKey reads the column out of PostgreSQL's default
// "<table>_<column>_fkey" names.
func extractColumnForForeignKey(constraintName string) string {
	if matches := foreignKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// HandleError converts any error coming out of the data layer into an
// *errs.HTTPError.
//
//   - *errs.HTTPError: returned unchanged
//   - timeouts and lost connections: 503
//   - sqlexec.ConstructionError: 500, the statement itself is wrong
//   - sqlexec.NoValueProducedError: 400
//   - constraint and format violations from any backend: 400
//   - ErrNoRows: 404
//   - anything else: 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.NewServiceUnavailableError("The database did not respond in time")

	case errors.Is(err, sql.ErrConnDone), sqlexec.IsDatabaseClosed(err), errors.Is(err, driver.ErrBadConn):
		return errs.NewServiceUnavailableError("The database is unavailable")

	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		errMsg := err.Error()
		tablePrefix := "table:"
		if strings.Contains(errMsg, tablePrefix) {
			table := strings.Split(strings.Split(errMsg, tablePrefix)[1], ":")[0]
			entityName := getEntityName(table, "")
			return errs.NewNotFoundError(fmt.Sprintf("%s not found", entityName), true, nil)
		}
		return errs.NewNotFoundError("Resource not found", false, nil)
	}

	var constructionErr *sqlexec.ConstructionError
	if errors.As(err, &constructionErr) {
		return errs.NewInternalServerError()
	}

	var noValue *sqlexec.NoValueProducedError
	if errors.As(err, &noValue) {
		code := "NO_VALUE_PRODUCED"
		message := fmt.Sprintf("The statement did not produce a %s", humanizeText(noValue.Name))
		return errs.NewBadRequestError(message, true, &code, nil)
	}

	if sqlErr := Convert(err); sqlErr != nil {
		return handleSQLError(sqlErr)
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return errs.NewServiceUnavailableError("The database is unavailable")
	}

	return errs.NewInternalServerError()
}

func handleSQLError(sqlErr *Error) error {
	errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)
	userMessage := formatUserFriendlyMessage(sqlErr)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return errs.NewBadRequestError(userMessage, true, &errorCode, nil)

	case UniqueViolation:
		if columnName := extractColumnForUniqueViolation(sqlErr.ConstraintName); columnName != "" {
			userMessage = strings.ReplaceAll(userMessage, "identifier", humanizeText(columnName))
		}
		return errs.NewBadRequestError(userMessage, true, &errorCode, nil)

	case NotNullViolation:
		fieldErrors := []errs.FieldError{
			{
				Field: strings.ToLower(sqlErr.ColumnName),
				Error: "is required",
			},
		}
		return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors)

	case CheckViolation, DataException:
		return errs.NewBadRequestError(userMessage, true, &errorCode, nil)

	case ConnectionException, QueryCanceled, InsufficientResource:
		return errs.NewServiceUnavailableError("The database is unavailable")

	default:
		return errs.NewInternalServerError()
	}
}
