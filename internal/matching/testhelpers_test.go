package matching

import "github.com/alanyoungcy/arbscanner/internal/domain"

func kalshiMarket(id, title string) domain.Market {
	return domain.Market{ID: id, Exchange: domain.ExchangeKalshi, Title: title}
}

func polyMarket(id, title string) domain.Market {
	return domain.Market{ID: id, Exchange: domain.ExchangePolymarket, Title: title}
}
