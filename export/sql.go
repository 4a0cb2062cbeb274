package export

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

const (
	sqlRecordCountInfo = 100

	sqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS sites (
		"ID"                INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"SiteID"            TEXT NOT NULL,
		"Class"             TEXT,
		"CenterX"           REAL,
		"CenterY"           REAL,
		"ErrP50M"           REAL,
		"ErrP95M"           REAL,
		"NumFixes"          INTEGER,
		"DurationSeconds"   REAL,
		"UsedSatMean"       REAL,
		"Cn0Mean"           REAL,
		"Cn0Std"            REAL,
		"ElevMean"          REAL,
		"UsedRate"          REAL,
		"HDOPCutAMedian"    REAL,
		"HDOPCutBMedian"    REAL,
		"RiskProxy"         REAL,
		"SVFProxy"          REAL,
		"RiskHorizon"       REAL,
		"OverheadFlag"      INTEGER,
		"OverheadScore"     REAL,
		"HighError"         INTEGER
	);`
	sqlInsertRecordTmpl = `INSERT INTO sites (
		SiteID,
		Class,
		CenterX,
		CenterY,
		ErrP50M,
		ErrP95M,
		NumFixes,
		DurationSeconds,
		UsedSatMean,
		Cn0Mean,
		Cn0Std,
		ElevMean,
		UsedRate,
		HDOPCutAMedian,
		HDOPCutBMedian,
		RiskProxy,
		SVFProxy,
		RiskHorizon,
		OverheadFlag,
		OverheadScore,
		HighError
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
	sqlSelectRecordsTmpl = `SELECT
		SiteID,
		Class,
		CenterX,
		CenterY,
		ErrP50M,
		ErrP95M,
		NumFixes,
		DurationSeconds,
		UsedSatMean,
		Cn0Mean,
		Cn0Std,
		ElevMean,
		UsedRate,
		HDOPCutAMedian,
		HDOPCutBMedian,
		RiskProxy,
		SVFProxy,
		RiskHorizon,
		OverheadFlag,
		OverheadScore,
		HighError
	FROM sites ORDER BY SiteID;`
)

type SQL struct {
	DB *sql.DB
}

func (s *SQL) Write(ctx context.Context, records <-chan site.Record) error {
	if err := sqlCreateTableIfNotExists(s.DB); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for record := range records {
		counts["total"] += 1
		if err := sqlInsertRecord(s.DB, record); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in sqlite DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqlRecordCountInfo == 0 {
			glog.Infof("Site export counts: %+v\n", counts)
		}
	}

	return nil
}

func sqlCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(sqlCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func sqlInsertRecord(db *sql.DB, r site.Record) error {
	statement, err := db.Prepare(sqlInsertRecordTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(
		r.SiteID,
		r.Class,
		nullable(r.CenterX),
		nullable(r.CenterY),
		nullable(r.ErrP50M),
		nullable(r.ErrP95M),
		r.NumFixes,
		nullable(r.DurationSeconds),
		nullable(r.UsedSatMean),
		nullable(r.Cn0Mean),
		nullable(r.Cn0Std),
		nullable(r.ElevMean),
		nullable(r.UsedRate),
		nullable(r.HDOPCutAMedian),
		nullable(r.HDOPCutBMedian),
		nullable(r.RiskProxy),
		nullable(r.SVFProxy),
		nullable(r.RiskHorizon),
		r.OverheadFlag,
		nullable(r.OverheadScore),
		r.HighError,
	); err != nil {
		return err
	}

	return nil
}

// nullable maps NaN to SQL NULL so missing metrics survive a roundtrip.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// ReadRecords loads every stored site record, ordered by site ID. It is
// the read side of SQL.Write used by the results server and renderers.
func ReadRecords(ctx context.Context, db *sql.DB) ([]site.Record, error) {
	rows, err := db.QueryContext(ctx, sqlSelectRecordsTmpl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []site.Record
	for rows.Next() {
		var r site.Record
		var centerX, centerY, errP50, errP95, duration, usedSatMean sql.NullFloat64
		var cn0Mean, cn0Std, elevMean, usedRate, hdopA, hdopB sql.NullFloat64
		var riskProxy, svfProxy, riskHorizon, overheadScore sql.NullFloat64
		if err := rows.Scan(
			&r.SiteID,
			&r.Class,
			&centerX,
			&centerY,
			&errP50,
			&errP95,
			&r.NumFixes,
			&duration,
			&usedSatMean,
			&cn0Mean,
			&cn0Std,
			&elevMean,
			&usedRate,
			&hdopA,
			&hdopB,
			&riskProxy,
			&svfProxy,
			&riskHorizon,
			&r.OverheadFlag,
			&overheadScore,
			&r.HighError,
		); err != nil {
			return nil, err
		}
		r.CenterX = orNaN(centerX)
		r.CenterY = orNaN(centerY)
		r.ErrP50M = orNaN(errP50)
		r.ErrP95M = orNaN(errP95)
		r.DurationSeconds = orNaN(duration)
		r.UsedSatMean = orNaN(usedSatMean)
		r.Cn0Mean = orNaN(cn0Mean)
		r.Cn0Std = orNaN(cn0Std)
		r.ElevMean = orNaN(elevMean)
		r.UsedRate = orNaN(usedRate)
		r.HDOPCutAMedian = orNaN(hdopA)
		r.HDOPCutBMedian = orNaN(hdopB)
		r.RiskProxy = orNaN(riskProxy)
		r.SVFProxy = orNaN(svfProxy)
		r.RiskHorizon = orNaN(riskHorizon)
		r.OverheadScore = orNaN(overheadScore)
		records = append(records, r)
	}
	return records, rows.Err()
}
