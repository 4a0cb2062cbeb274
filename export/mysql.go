package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"

	"github.com/0319-2004/PacificPNT-Reproducible/site"
)

const (
	mysqlRecordCountInfo = 100

	mysqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS sites (
		ID                INTEGER NOT NULL PRIMARY KEY AUTO_INCREMENT,
		SiteID            TEXT NOT NULL,
		Class             TEXT,
		CenterX           DOUBLE,
		CenterY           DOUBLE,
		ErrP50M           DOUBLE,
		ErrP95M           DOUBLE,
		NumFixes          INTEGER,
		DurationSeconds   DOUBLE,
		UsedSatMean       DOUBLE,
		Cn0Mean           DOUBLE,
		Cn0Std            DOUBLE,
		ElevMean          DOUBLE,
		UsedRate          DOUBLE,
		HDOPCutAMedian    DOUBLE,
		HDOPCutBMedian    DOUBLE,
		RiskProxy         DOUBLE,
		SVFProxy          DOUBLE,
		RiskHorizon       DOUBLE,
		OverheadFlag      INTEGER,
		OverheadScore     DOUBLE,
		HighError         INTEGER
	);`
	mysqlInsertRecordTmpl = `INSERT INTO sites (
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
)

type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, records <-chan site.Record) error {
	if err := mysqlCreateTableIfNotExists(m.DB); err != nil {
		return fmt.Errorf("unable to create table: %s", err)
	}

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for record := range records {
		counts["total"] += 1
		if err := mysqlInsertRecord(m.DB, record); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in MySQL DB: %s\n", err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%mysqlRecordCountInfo == 0 {
			glog.Infof("Site export counts: %+v\n", counts)
		}
	}

	return nil
}

func mysqlCreateTableIfNotExists(db *sql.DB) error {
	statement, err := db.Prepare(mysqlCreateTableTmpl)
	if err != nil {
		return err
	}
	if _, err := statement.Exec(); err != nil {
		return err
	}

	return nil
}

func mysqlInsertRecord(db *sql.DB, r site.Record) error {
	statement, err := db.Prepare(mysqlInsertRecordTmpl)
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
