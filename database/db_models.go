package database

import "github.com/tantralabs/krypto/models"

// candleRow is one row of the candles table.
type candleRow struct {
	Exchange string `db:"exchange"`
	Symbol   string `db:"symbol"`
	Interval string `db:"interval"`
	models.Candle
}

const schema = `
create table if not exists candles (
	exchange   text not null,
	symbol     text not null,
	interval   text not null,
	open_time  bigint not null,
	close_time bigint not null,
	open       double precision not null,
	high       double precision not null,
	low        double precision not null,
	close      double precision not null,
	volume     double precision not null,
	primary key (exchange, symbol, interval, open_time)
);`

const upsertCandle = `insert into candles (exchange, symbol, interval, open_time, close_time, open, high, low, close, volume)
values (:exchange, :symbol, :interval, :open_time, :close_time, :open, :high, :low, :close, :volume)
on conflict (exchange, symbol, interval, open_time) do update set
	close_time = excluded.close_time, open = excluded.open, high = excluded.high,
	low = excluded.low, close = excluded.close, volume = excluded.volume;`
