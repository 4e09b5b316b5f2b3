package domain

import (
	"encoding/xml"
	"fmt"
)

// Batch is an ordered sequence of records transmitted or spooled as one
// unit. It carries no metadata of its own.
type Batch []Record

type xmlProperty struct {
	Key   string `xml:"Key"`
	Value string `xml:"Value"`
}

type xmlProperties struct {
	Property []xmlProperty `xml:"Property"`
}

// Child element order matches the ingestion server's schema.
type xmlSensorData struct {
	Timestamp      string         `xml:"Timestamp"`
	Runtime        string         `xml:"Runtime"`
	Owner          string         `xml:"Owner"`
	Tool           string         `xml:"Tool"`
	Resource       string         `xml:"Resource"`
	SensorDataType string         `xml:"SensorDataType"`
	Properties     *xmlProperties `xml:"Properties"`
}

type xmlSensorDatas struct {
	XMLName    xml.Name        `xml:"SensorDatas"`
	SensorData []xmlSensorData `xml:"SensorData"`
}

// EncodeXML serializes the batch as a <SensorDatas> document, indented so
// spool files stay readable.
func (b Batch) EncodeXML() ([]byte, error) {
	doc := xmlSensorDatas{SensorData: make([]xmlSensorData, 0, len(b))}
	for i := range b {
		rec := &b[i]
		sd := xmlSensorData{
			Timestamp:      FormatTimestamp(rec.Timestamp),
			Runtime:        FormatTimestamp(rec.Runtime),
			Owner:          rec.Owner,
			Tool:           rec.Tool,
			Resource:       rec.Resource,
			SensorDataType: rec.SensorDataType,
		}
		if len(rec.Properties) > 0 {
			props := &xmlProperties{Property: make([]xmlProperty, 0, len(rec.Properties))}
			for _, p := range rec.Properties {
				props.Property = append(props.Property, xmlProperty{Key: p.Key, Value: p.Value})
			}
			sd.Properties = props
		}
		doc.SensorData = append(doc.SensorData, sd)
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("domain: encode batch: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// DecodeBatch parses a <SensorDatas> document back into a Batch, preserving
// record and property order.
func DecodeBatch(data []byte) (Batch, error) {
	var doc xmlSensorDatas
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("domain: decode batch: %w", err)
	}
	batch := make(Batch, 0, len(doc.SensorData))
	for _, sd := range doc.SensorData {
		ts, err := ParseTimestamp(sd.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("domain: decode batch: Timestamp %q: %w", sd.Timestamp, err)
		}
		rt, err := ParseTimestamp(sd.Runtime)
		if err != nil {
			return nil, fmt.Errorf("domain: decode batch: Runtime %q: %w", sd.Runtime, err)
		}
		rec := Record{
			Timestamp:      ts,
			Runtime:        rt,
			Owner:          sd.Owner,
			Tool:           sd.Tool,
			Resource:       sd.Resource,
			SensorDataType: sd.SensorDataType,
		}
		if sd.Properties != nil {
			for _, p := range sd.Properties.Property {
				rec.Properties = append(rec.Properties, Property{Key: p.Key, Value: p.Value})
			}
		}
		batch = append(batch, rec)
	}
	return batch, nil
}
