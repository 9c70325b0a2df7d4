package fetchxml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Parse reads back the wire XML form into a document tree, used by the
// round-trip property (§8 property 1: the pretty-printed FetchXML re-parses
// to the same tree).
func Parse(data string) (*Fetch, error) {
	dec := xml.NewDecoder(strings.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "fetch" {
			return nil, fmt.Errorf("fetchxml: expected <fetch>, got <%s>", start.Name.Local)
		}
		fx := &Fetch{}
		for _, a := range start.Attr {
			switch a.Name.Local {
			case "distinct":
				fx.Distinct = a.Value == "true"
			case "top":
				v, err := strconv.Atoi(a.Value)
				if err != nil {
					return nil, err
				}
				fx.Top = &v
			case "count":
				v, err := strconv.Atoi(a.Value)
				if err != nil {
					return nil, err
				}
				fx.Count = &v
			case "page":
				v, err := strconv.Atoi(a.Value)
				if err != nil {
					return nil, err
				}
				fx.Page = &v
			case "no-lock":
				fx.NoLock = a.Value == "true"
			case "aggregate":
				fx.Aggregate = a.Value == "true"
			case "paging-cookie":
				fx.PagingCookie = a.Value
			}
		}
		entity, err := parseEntityBody(dec)
		if err != nil {
			return nil, err
		}
		fx.Entity = entity
		return fx, nil
	}
}

func parseEntityBody(dec *xml.Decoder) (*Entity, error) {
	e := &Entity{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "entity":
				for _, a := range t.Attr {
					if a.Name.Local == "name" {
						e.Name = a.Value
					}
				}
			default:
				item, err := parseItem(dec, t)
				if err != nil {
					return nil, err
				}
				e.Items = append(e.Items, item)
			}
		case xml.EndElement:
			if t.Name.Local == "entity" {
				return e, nil
			}
			if t.Name.Local == "fetch" {
				return e, nil
			}
		}
	}
}

func parseItem(dec *xml.Decoder, start xml.StartElement) (Item, error) {
	switch start.Name.Local {
	case "attribute":
		return parseAttribute(start), nil
	case "all-attributes":
		if err := skipToEnd(dec, start.Name.Local); err != nil {
			return nil, err
		}
		return &AllAttributes{}, nil
	case "order":
		return parseOrder(start), nil
	case "filter":
		return parseFilter(dec, start)
	case "link-entity":
		return parseLinkEntity(dec, start)
	default:
		return nil, fmt.Errorf("fetchxml: unexpected element <%s>", start.Name.Local)
	}
}

func parseAttribute(start xml.StartElement) *Attribute {
	a := &Attribute{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			a.Name = attr.Value
		case "alias":
			a.Alias = attr.Value
		case "aggregate":
			a.Aggregate = attr.Value
		case "aggregateSpecified":
			a.AggregateSpecified = attr.Value == "true"
		case "distinct":
			a.Distinct = attr.Value == "true"
		case "dategrouping":
			a.DateGrouping = attr.Value
		case "dategroupingSpecified":
			a.DateGroupingSpecified = attr.Value == "true"
		case "groupby":
			a.GroupBy = attr.Value == "true"
		}
	}
	return a
}

func parseOrder(start xml.StartElement) *Order {
	o := &Order{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "attribute":
			o.Attribute = attr.Value
		case "alias":
			o.Alias = attr.Value
		case "descending":
			o.Descending = attr.Value == "true"
		}
	}
	return o
}

func parseFilter(dec *xml.Decoder, start xml.StartElement) (*Filter, error) {
	f := &Filter{Type: FilterAnd}
	for _, attr := range start.Attr {
		if attr.Name.Local == "type" {
			f.Type = FilterType(attr.Value)
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "condition":
				cond, err := parseCondition(dec, t)
				if err != nil {
					return nil, err
				}
				f.Items = append(f.Items, cond)
			case "filter":
				child, err := parseFilter(dec, t)
				if err != nil {
					return nil, err
				}
				f.Items = append(f.Items, child)
			}
		case xml.EndElement:
			if t.Name.Local == "filter" {
				return f, nil
			}
		}
	}
}

func parseCondition(dec *xml.Decoder, start xml.StartElement) (*Condition, error) {
	c := &Condition{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "entityname":
			c.EntityName = attr.Value
		case "attribute":
			c.Attribute = attr.Value
		case "operator":
			c.Operator = attr.Value
		case "value":
			v := attr.Value
			c.Value = &v
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "value" {
				var cd string
				for {
					inner, err := dec.Token()
					if err != nil {
						return nil, err
					}
					if char, ok := inner.(xml.CharData); ok {
						cd += string(char)
						continue
					}
					if _, ok := inner.(xml.EndElement); ok {
						break
					}
				}
				c.Values = append(c.Values, cd)
			}
		case xml.EndElement:
			if t.Name.Local == "condition" {
				return c, nil
			}
		}
	}
}

func parseLinkEntity(dec *xml.Decoder, start xml.StartElement) (*LinkEntity, error) {
	l := &LinkEntity{LinkType: JoinInner}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "name":
			l.Name = attr.Value
		case "alias":
			l.Alias = attr.Value
		case "from":
			l.From = attr.Value
		case "to":
			l.To = attr.Value
		case "link-type":
			if attr.Value == "outer" {
				l.LinkType = JoinOuter
			}
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			item, err := parseItem(dec, t)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, item)
		case xml.EndElement:
			if t.Name.Local == "link-entity" {
				return l, nil
			}
		}
	}
}

func skipToEnd(dec *xml.Decoder, name string) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == name {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == name {
				depth--
			}
		}
	}
	return nil
}
