package generator

import (
	"strings"

	"tempmail/playground/internal/domain"
)

// AddressGenerator 生成一次性邮箱地址。
//
// 纯函数：不修改任何会话状态，归档历史、清空收件箱和重置倒计时由调用方负责。
type AddressGenerator struct {
	src     Source
	domains []string
}

// NewAddressGenerator 创建地址生成器。
func NewAddressGenerator(src Source) *AddressGenerator {
	return &AddressGenerator{
		src:     src,
		domains: domain.AddressDomains(),
	}
}

// Generate 生成新地址：12 位随机前缀 + 随机候选域名。
func (g *AddressGenerator) Generate() domain.Address {
	var b strings.Builder
	b.Grow(domain.LocalPartLength + 1 + len(g.domains[0]))

	for i := 0; i < domain.LocalPartLength; i++ {
		b.WriteByte(domain.LocalPartAlphabet[g.src.Intn(len(domain.LocalPartAlphabet))])
	}
	b.WriteByte('@')
	b.WriteString(Pick(g.domains, g.src))

	return domain.Address(b.String())
}
