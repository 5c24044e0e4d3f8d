package event

import (
	"bytes"
	"encoding/xml"

	"golang.org/x/net/html/charset"

	"github.com/dep2p/go-upnpcp/pkg/types"
)

// propertySet GENA 事件主体
//
//	<e:propertyset xmlns:e="urn:schemas-upnp-org:event-1-0">
//	  <e:property><Name>value</Name></e:property>
//	</e:propertyset>
type propertySet struct {
	XMLName    xml.Name
	Properties []struct {
		Vars []struct {
			XMLName xml.Name
			Value   string `xml:",chardata"`
		} `xml:",any"`
	} `xml:"property"`
}

// ParseProperties 解析事件主体
//
// 根元素不是 propertyset 或 XML 结构无效时返回空列表。
func ParseProperties(body []byte) []types.Property {
	if len(body) == 0 {
		return nil
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel

	var ps propertySet
	if err := dec.Decode(&ps); err != nil {
		log.Debug("事件主体解析失败", "err", err)
		return nil
	}
	if ps.XMLName.Local != "propertyset" {
		return nil
	}

	var props []types.Property
	for _, p := range ps.Properties {
		for _, v := range p.Vars {
			props = append(props, types.Property{Name: v.XMLName.Local, Value: v.Value})
		}
	}
	return props
}
