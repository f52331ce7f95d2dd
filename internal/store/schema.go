package store

// Every statement is idempotent; provisioning replays the whole list.

var sqliteDirectorySchema = []string{
	`CREATE TABLE IF NOT EXISTS advertiser (
    aid          INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT     NOT NULL DEFAULT '',
    license      TEXT     NOT NULL,
    db_host      TEXT     NOT NULL DEFAULT '',
    date_created DATETIME NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS domain (
    dkey         INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT     NOT NULL,
    aid          INTEGER  NOT NULL,
    db_host      TEXT     NOT NULL DEFAULT '',
    date_created DATETIME NOT NULL,
    UNIQUE(name)
)`,
	`CREATE INDEX IF NOT EXISTS idx_domain_aid ON domain(aid)`,
}

var sqliteShardSchema = []string{
	`CREATE TABLE IF NOT EXISTS visit (
    pkey         INTEGER PRIMARY KEY AUTOINCREMENT,
    guid         INTEGER  NOT NULL DEFAULT 0,
    did          INTEGER  NOT NULL,
    ip           BLOB     NOT NULL,
    variant      INTEGER  NOT NULL DEFAULT 0,
    channel      TEXT     NOT NULL DEFAULT 'organic',
    subchannel   TEXT     NOT NULL DEFAULT '',
    target       TEXT     NOT NULL DEFAULT '',
    is_bot       INTEGER  NOT NULL DEFAULT 0,
    engagement   INTEGER  NOT NULL DEFAULT 0,
    date_created DATETIME NOT NULL,
    UNIQUE(did, ip, channel, subchannel, target, date_created)
)`,
	`CREATE INDEX IF NOT EXISTS idx_visit_channel ON visit(channel)`,
	`CREATE INDEX IF NOT EXISTS idx_visit_date_created ON visit(date_created)`,
	`CREATE INDEX IF NOT EXISTS idx_visit_is_bot ON visit(is_bot)`,
	`CREATE TABLE IF NOT EXISTS action (
    hash          INTEGER PRIMARY KEY AUTOINCREMENT,
    pkey          INTEGER       NOT NULL,
    action        INTEGER       NOT NULL DEFAULT 0,
    name          TEXT          NOT NULL,
    variant       INTEGER       NOT NULL DEFAULT 0,
    is_engagement INTEGER       NOT NULL DEFAULT 1,
    date_created  DATETIME      NOT NULL,
    date_revenue  DATETIME      NOT NULL,
    revenue       DECIMAL(10,2) NOT NULL DEFAULT 0,
    pixel         INTEGER       NOT NULL DEFAULT 0,
    logstring     TEXT          NOT NULL DEFAULT '',
    FOREIGN KEY (pkey) REFERENCES visit(pkey) ON DELETE CASCADE ON UPDATE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_action_pkey ON action(pkey, hash)`,
	`CREATE INDEX IF NOT EXISTS idx_action_name ON action(name)`,
	`CREATE INDEX IF NOT EXISTS idx_action_date_created ON action(date_created)`,
	`CREATE TABLE IF NOT EXISTS parameters (
    pid          INTEGER PRIMARY KEY AUTOINCREMENT,
    pkey         INTEGER  NOT NULL,
    hash         INTEGER  NOT NULL DEFAULT 0,
    name         TEXT     NOT NULL,
    value        TEXT     NOT NULL,
    date_created DATETIME NOT NULL,
    UNIQUE(pkey, hash, name),
    FOREIGN KEY (pkey) REFERENCES visit(pkey) ON DELETE CASCADE ON UPDATE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_parameters_hash ON parameters(hash)`,
	`CREATE TABLE IF NOT EXISTS affiliate (
    akey         INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT          NOT NULL DEFAULT '',
    channel      TEXT          NOT NULL,
    subchannel   TEXT          NOT NULL DEFAULT '',
    maxbucket    DECIMAL(10,2) NOT NULL DEFAULT 0,
    revshare     DECIMAL(3,2)  NOT NULL DEFAULT 0,
    cpa          DECIMAL(10,2) NOT NULL DEFAULT 0,
    cpm          DECIMAL(10,2) NOT NULL DEFAULT 0,
    cpc          DECIMAL(10,2) NOT NULL DEFAULT 0,
    pixel        TEXT          NOT NULL DEFAULT '',
    date_created DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    date_updated DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(channel, subchannel)
)`,
	`CREATE TABLE IF NOT EXISTS bucket (
    bid          INTEGER PRIMARY KEY AUTOINCREMENT,
    akey         INTEGER       NOT NULL,
    subchannel   TEXT          NOT NULL,
    revenue      DECIMAL(10,2) NOT NULL DEFAULT 0,
    date_updated DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(akey, subchannel),
    FOREIGN KEY (akey) REFERENCES affiliate(akey) ON DELETE CASCADE ON UPDATE CASCADE
)`,
}

var mysqlDirectorySchema = []string{
	`CREATE TABLE IF NOT EXISTS advertiser (
    aid          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    name         VARCHAR(250)    NOT NULL DEFAULT '',
    license      VARCHAR(250)    NOT NULL,
    db_host      VARCHAR(250)    NOT NULL DEFAULT '',
    date_created DATETIME        NOT NULL,
    PRIMARY KEY (aid)
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
	`CREATE TABLE IF NOT EXISTS domain (
    dkey         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    name         VARCHAR(250)    NOT NULL,
    aid          BIGINT UNSIGNED NOT NULL,
    db_host      VARCHAR(250)    NOT NULL DEFAULT '',
    date_created DATETIME        NOT NULL,
    PRIMARY KEY (dkey),
    UNIQUE INDEX name_UNIQUE (name),
    INDEX (aid)
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
}

var mysqlShardSchema = []string{
	`CREATE TABLE IF NOT EXISTS visit (
    pkey         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    guid         BIGINT UNSIGNED NOT NULL DEFAULT 0,
    did          BIGINT UNSIGNED NOT NULL,
    ip           VARBINARY(16)   NOT NULL,
    variant      INT UNSIGNED    NOT NULL DEFAULT 0,
    channel      VARCHAR(100)    NOT NULL DEFAULT 'organic',
    subchannel   VARCHAR(100)    NOT NULL DEFAULT '',
    target       VARCHAR(250)    NOT NULL DEFAULT '',
    is_bot       TINYINT(1)      NOT NULL DEFAULT 0,
    engagement   INT UNSIGNED    NOT NULL DEFAULT 0,
    date_created DATETIME        NOT NULL,
    PRIMARY KEY (pkey),
    INDEX (guid),
    INDEX (channel),
    UNIQUE INDEX combo_UNIQUE (did, ip, channel, subchannel, target, date_created),
    INDEX (date_created),
    INDEX (is_bot),
    INDEX analytics1 (pkey, date_created, is_bot)
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
	`CREATE TABLE IF NOT EXISTS action (
    hash          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    pkey          BIGINT UNSIGNED NOT NULL,
    action        INT             NOT NULL DEFAULT 0,
    name          VARCHAR(250)    NOT NULL,
    variant       INT UNSIGNED    NOT NULL DEFAULT 0,
    is_engagement TINYINT(1)      NOT NULL DEFAULT 1,
    date_created  DATETIME        NOT NULL,
    date_revenue  DATETIME        NOT NULL DEFAULT '1970-01-01 00:00:00',
    revenue       DECIMAL(10,2)   NOT NULL DEFAULT 0,
    pixel         INT UNSIGNED    NOT NULL DEFAULT 0,
    logstring     VARCHAR(1000)   NOT NULL DEFAULT '',
    PRIMARY KEY (hash),
    INDEX (pkey, hash),
    INDEX (name),
    INDEX (pixel),
    INDEX (date_created),
    INDEX (date_revenue),
    CONSTRAINT fk_action_pkey FOREIGN KEY (pkey) REFERENCES visit (pkey) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
	`CREATE TABLE IF NOT EXISTS parameters (
    pid          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
    pkey         BIGINT UNSIGNED NOT NULL,
    hash         BIGINT UNSIGNED NOT NULL DEFAULT 0,
    name         VARCHAR(45)     NOT NULL,
    value        VARCHAR(255)    NOT NULL,
    date_created DATETIME        NOT NULL,
    PRIMARY KEY (pid),
    INDEX (hash),
    INDEX (pkey),
    INDEX (name),
    UNIQUE INDEX combo_UNIQUE (pkey, hash, name),
    INDEX (date_created),
    CONSTRAINT fk_parameters_pkey FOREIGN KEY (pkey) REFERENCES visit (pkey) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
	`CREATE TABLE IF NOT EXISTS affiliate (
    akey         BIGINT UNSIGNED        NOT NULL AUTO_INCREMENT,
    name         VARCHAR(100)           NOT NULL DEFAULT '',
    channel      VARCHAR(100)           NOT NULL,
    subchannel   VARCHAR(100)           NOT NULL DEFAULT '',
    maxbucket    DECIMAL(10,2) UNSIGNED NOT NULL DEFAULT 0,
    revshare     DECIMAL(3,2) UNSIGNED  NOT NULL DEFAULT 0,
    cpa          DECIMAL(10,2) UNSIGNED NOT NULL DEFAULT 0,
    cpm          DECIMAL(10,2) UNSIGNED NOT NULL DEFAULT 0,
    cpc          DECIMAL(10,2) UNSIGNED NOT NULL DEFAULT 0,
    pixel        VARCHAR(255)           NOT NULL DEFAULT '',
    date_created TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP,
    date_updated TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (akey),
    INDEX (channel),
    UNIQUE INDEX combo_UNIQUE (channel, subchannel)
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
	`CREATE TABLE IF NOT EXISTS bucket (
    bid          BIGINT UNSIGNED        NOT NULL AUTO_INCREMENT,
    akey         BIGINT UNSIGNED        NOT NULL,
    subchannel   VARCHAR(100)           NOT NULL,
    revenue      DECIMAL(10,2) UNSIGNED NOT NULL DEFAULT 0.00,
    date_updated TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (bid),
    INDEX (subchannel),
    UNIQUE INDEX combo_UNIQUE (akey, subchannel),
    CONSTRAINT fk_bucket_akey FOREIGN KEY (akey) REFERENCES affiliate (akey) ON DELETE CASCADE ON UPDATE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=latin1`,
}
