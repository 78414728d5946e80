package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Envelope captures the raw Body content of a SOAP message.
type Envelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    Body     `xml:"Body"`
}

type Body struct {
	Content []byte `xml:",innerxml"`
}

// Arg is one in-argument of a UPnP action. Arguments are kept as a
// slice because UPnP requires them in SCPD order.
type Arg struct {
	Name  string
	Value string
}

type Args []Arg

// Fault is a SOAP fault carrying the UPnP error code and description
// from the <UPnPError> detail, when present.
type Fault struct {
	FaultCode   string
	FaultString string
	ErrorCode   string
	ErrorDesc   string
}

func (f *Fault) Error() string {
	if f.ErrorCode != "" {
		return fmt.Sprintf("UPnP error %s (%s)", f.ErrorCode, f.ErrorDesc)
	}
	return fmt.Sprintf("SOAP fault %s: %s", f.FaultCode, f.FaultString)
}

// ----- Générateurs -----

// BuildUPnPRequest construit une requête SOAP avec <u:ActionName>
func BuildUPnPRequest(serviceURN, action string, args Args) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(fmt.Sprintf(`<u:%s xmlns:u="%s">`, action, serviceURN))
	for _, a := range args {
		body.WriteString(fmt.Sprintf("<%s>%s</%s>", a.Name, xmlEscape(a.Value), a.Name))
	}
	body.WriteString(fmt.Sprintf(`</u:%s>`, action))

	return marshalSOAP(body.Bytes())
}

func marshalSOAP(content []byte) ([]byte, error) {
	type soapEnvelope struct {
		XMLName xml.Name `xml:"s:Envelope"`
		SoapNS  string   `xml:"xmlns:s,attr"`
		EncNS   string   `xml:"s:encodingStyle,attr"`
		Body    struct {
			XMLName xml.Name `xml:"s:Body"`
			Content string   `xml:",innerxml"`
		}
	}

	tmp := soapEnvelope{
		SoapNS: "http://schemas.xmlsoap.org/soap/envelope/",
		EncNS:  "http://schemas.xmlsoap.org/soap/encoding/",
	}
	tmp.Body.Content = string(content)

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(tmp); err != nil {
		return nil, err
	}
	enc.Flush()
	return buf.Bytes(), nil
}

// ----- Analyse -----

// ParseUPnPResponse extrait les arguments de sortie d'une réponse
// <u:ActionResponse>. A SOAP fault is returned as a *Fault error.
func ParseUPnPResponse(body []byte) (map[string]string, error) {
	var env Envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("cannot unmarshal SOAP Envelope: %w", err)
	}

	decoder := xml.NewDecoder(bytes.NewReader(env.Body.Content))
	var root string
	out := make(map[string]string)

	for {
		tok, err := decoder.Token()
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("SOAP parse error: %w", err)
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root == "" {
				root = t.Name.Local
				if root == "Fault" {
					return nil, parseFault(env.Body.Content)
				}
			} else {
				var value string
				decoder.DecodeElement(&value, &t)
				out[t.Name.Local] = value
			}
		}
	}

	if root == "" {
		return nil, fmt.Errorf("SOAP Body holds no action response")
	}
	return out, nil
}

func parseFault(content []byte) *Fault {
	type upnpError struct {
		ErrorCode        string `xml:"errorCode"`
		ErrorDescription string `xml:"errorDescription"`
	}
	type soapFault struct {
		FaultCode   string `xml:"faultcode"`
		FaultString string `xml:"faultstring"`
		Detail      struct {
			UPnPError upnpError `xml:"UPnPError"`
		} `xml:"detail"`
	}

	var f soapFault
	if err := xml.Unmarshal(content, &f); err != nil {
		return &Fault{FaultCode: "s:Client", FaultString: "unparseable fault"}
	}

	return &Fault{
		FaultCode:   f.FaultCode,
		FaultString: f.FaultString,
		ErrorCode:   strings.TrimSpace(f.Detail.UPnPError.ErrorCode),
		ErrorDesc:   strings.TrimSpace(f.Detail.UPnPError.ErrorDescription),
	}
}

// xmlEscape échappe manuellement les caractères dangereux
func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
