package common

import (
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

const ServiceName = "atlas"

func NextId(idWorker *sonyflake.Sonyflake) types.ID {
	id, err := idWorker.NextID()
	if err != nil {
		panic(err)
	}
	return types.ID(id)
}

func StringReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
